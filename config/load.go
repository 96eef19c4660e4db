package config

import (
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-config/logger"
)

const (
	// EnvPrefix scopes environment overrides, e.g. DEVCONNECT_AUTH__SIGNING_KEY
	EnvPrefix = "DEVCONNECT_"
	// EnvDelimiter separates nested keys in environment variable names
	EnvDelimiter = "__"
	// SigningKeyEnv carries the token signing key. app.json ships it empty.
	SigningKeyEnv = EnvPrefix + "AUTH" + EnvDelimiter + "SIGNING_KEY"
)

// NewContainer reads path and then the environment, so secrets left empty
// in the file are supplied at deploy time. Load fails validation when the
// signing key is missing.
func NewContainer(path string, lgr logger.Logger) *gconfig.Container[*BaseConfig] {
	if path == "" {
		path = gconfig.DefaultConfigFilepath
	}

	c := gconfig.New(&BaseConfig{}).
		WithConfigPath(path).
		WithProvider(
			gconfig.OptionalProvider(gconfig.FileProvider[*BaseConfig](path)),
			gconfig.EnvProvider[*BaseConfig](EnvPrefix, EnvDelimiter),
		)

	if lgr != nil {
		c = c.WithLogger(lgr)
	}

	return c
}
