package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
)

const (
	defaultGithubTimeout = 10 * time.Second
	defaultPingTimeout   = 5 * time.Second
	defaultExpiration    = 168
)

// BaseConfig is the application configuration loaded from app.json and the environment
type BaseConfig struct {
	Name        string      `koanf:"name" json:"name"`
	Server      Server      `koanf:"server" json:"server"`
	Auth        Auth        `koanf:"auth" json:"auth"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
	Github      Github      `koanf:"github" json:"github"`
}

type Server struct {
	Address string `koanf:"address" json:"address"`
	Debug   bool   `koanf:"debug" json:"debug"`
}

type Auth struct {
	SigningKey      string `koanf:"signing_key" json:"-"`
	SigningMethod   string `koanf:"signing_method" json:"signing_method"`
	ContextKey      string `koanf:"context_key" json:"context_key"`
	TokenExpiration int    `koanf:"token_expiration" json:"token_expiration"`
	TokenLookup     string `koanf:"token_lookup" json:"token_lookup"`
	Issuer          string `koanf:"issuer" json:"issuer"`
	HashidUserIDs   bool   `koanf:"hashid_user_ids" json:"hashid_user_ids"`
}

type Persistence struct {
	Driver                string `koanf:"driver" json:"driver"`
	DSN                   string `koanf:"dsn" json:"dsn"`
	Debug                 bool   `koanf:"debug" json:"debug"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
	OtelIdentifier        string `koanf:"otel_identifier" json:"otel_identifier"`
}

type Github struct {
	ClientID          string `koanf:"client_id" json:"client_id"`
	ClientSecret      string `koanf:"client_secret" json:"-"`
	BaseURL           string `koanf:"base_url" json:"base_url"`
	UserAgent         string `koanf:"user_agent" json:"user_agent"`
	TimeoutExpression string `koanf:"timeout" json:"timeout"`
}

func (c BaseConfig) Validate() error {
	err := errors.ValidateWithOzzo(func() error {
		return validation.Errors{
			"server":      c.Server.Validate(),
			"auth":        c.Auth.Validate(),
			"persistence": c.Persistence.Validate(),
			"github":      c.Github.Validate(),
		}.Filter()
	}, "invalid configuration")

	if err != nil {
		return err
	}
	return nil
}

func (c BaseConfig) GetName() string {
	return c.Name
}

func (c BaseConfig) GetServer() Server {
	return c.Server
}

func (c BaseConfig) GetAuth() Auth {
	return c.Auth
}

func (c BaseConfig) GetPersistence() Persistence {
	return c.Persistence
}

func (c BaseConfig) GetGithub() Github {
	return c.Github
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
	)
}

func (s Server) GetAddress() string {
	return s.Address
}

func (s Server) GetDebug() bool {
	return s.Debug
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.SigningMethod, validation.In("HS256")),
		validation.Field(&a.TokenExpiration, validation.Min(0)),
	)
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	return a.ContextKey
}

// GetTokenExpiration returns the token lifetime in hours
func (a Auth) GetTokenExpiration() int {
	if a.TokenExpiration <= 0 {
		return defaultExpiration
	}
	return a.TokenExpiration
}

func (a Auth) GetTokenLookup() string {
	return a.TokenLookup
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetHashidUserIDs() bool {
	return a.HashidUserIDs
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.In("sqlite")),
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.PingTimeoutExpression, validation.By(durationRule)),
	)
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

// GetServer returns the DSN the persistence client connects to
func (p Persistence) GetServer() string {
	return p.DSN
}

// GetPingTimeout parses the ping timeout expression, falling back to five seconds
func (p Persistence) GetPingTimeout() time.Duration {
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil || dur <= 0 {
		return defaultPingTimeout
	}
	return dur
}

func (p Persistence) GetOtelIdentifier() string {
	return p.OtelIdentifier
}

func (g Github) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.TimeoutExpression, validation.By(durationRule)),
	)
}

func durationRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return validation.NewError("validation_duration", "must be a duration like 10s")
	}
	return nil
}

func (g Github) GetClientID() string {
	return g.ClientID
}

func (g Github) GetClientSecret() string {
	return g.ClientSecret
}

func (g Github) GetBaseURL() string {
	return g.BaseURL
}

func (g Github) GetUserAgent() string {
	return g.UserAgent
}

// GetTimeout parses the timeout expression, falling back to ten seconds
func (g Github) GetTimeout() time.Duration {
	dur, err := time.ParseDuration(g.TimeoutExpression)
	if err != nil || dur <= 0 {
		return defaultGithubTimeout
	}
	return dur
}
