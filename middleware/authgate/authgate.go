package authgate

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:x-auth-token"
	ErrTokenMissing    = errors.New("missing auth token")
)

// TokenValidator interface for validating tokens without import cycles
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims is the part of the verified claims the gate needs
type AuthClaims interface {
	Subject() string
	UserID() string
}

// ValidatorFunc adapts a function to TokenValidator
type ValidatorFunc func(tokenString string) (AuthClaims, error)

func (f ValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

type Config struct {
	// Filter skips the gate when it returns true
	Filter func(router.Context) bool
	// SuccessHandler runs before the next handler once the request is admitted
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// ContextKey is the Locals key for the validated claims
	ContextKey string
	// UserKey is the Locals key for the value returned by UserProvider
	UserKey string
	// TokenLookup is a comma separated list of source:name pairs,
	// e.g. "header:x-auth-token,cookie:token"
	TokenLookup string
	// AuthScheme prefix expected in header values. Empty reads the raw header.
	AuthScheme     string
	TokenValidator TokenValidator

	// UserProvider loads the member behind the claims. A failure rejects the request.
	UserProvider func(ctx context.Context, claims AuthClaims) (any, error)

	// ContextEnricher propagates claims and user to the request's user context
	ContextEnricher func(ctx context.Context, claims AuthClaims, user any) context.Context
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return next(c)
			}

			raw, err := ExtractRawToken(c, extractors)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			c.Locals(cfg.ContextKey, claims)

			var user any
			if cfg.UserProvider != nil {
				user, err = cfg.UserProvider(c.Context(), claims)
				if err != nil {
					return cfg.ErrorHandler(c, err)
				}
				c.Locals(cfg.UserKey, user)
			}

			if cfg.ContextEnricher != nil {
				c.SetContext(cfg.ContextEnricher(c.Context(), claims, user))
			}

			if cfg.SuccessHandler != nil {
				if err := cfg.SuccessHandler(c); err != nil {
					return err
				}
			}

			return next(c)
		}
	}
}

func ExtractRawToken(c router.Context, extractors []TokenExtractor) (string, error) {
	err := ErrTokenMissing
	for _, extractor := range extractors {
		var raw string
		raw, err = extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
	}
	return "", err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.JSON(router.StatusUnauthorized, map[string]string{
				"msg": "You are not authorized",
			})
		}
	}

	if cfg.TokenValidator == nil {
		panic("AUTHGATE: middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "claims"
	}

	if cfg.UserKey == "" {
		cfg.UserKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// GetExtractors parses lookups like header:x-auth-token,cookie:token,query:token
func GetExtractors(tokenLookup string, authScheme string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}

		switch source {
		case "header":
			extractors = append(extractors, tokenFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(name))
		case "param":
			extractors = append(extractors, tokenFromParam(name))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(name))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

func tokenFromHeader(header string, authScheme string) TokenExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := strings.TrimSpace(c.GetString(header, ""))
		if a == "" {
			return "", ErrTokenMissing
		}

		if authScheme == "" {
			return a, nil
		}

		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

func tokenFromParam(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}
