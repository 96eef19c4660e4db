package devconnect

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated member
type Identity interface {
	ID() string
	Name() string
	Email() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetIssuer() string
	GetHashidUserIDs() bool
}

// TokenService issues and verifies session tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Clock returns the current time, tests swap it for a fixed sequence
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Print("[ERR] DEVCONNECT " + render(format, args...))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Print("[WRN] DEVCONNECT " + render(format, args...))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Print("[INF] DEVCONNECT " + render(format, args...))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Print("[DBG] DEVCONNECT " + render(format, args...))
}

// render accepts both printf verbs and slog style key/value pairs
func render(format string, args ...any) string {
	var out string
	if countVerbs(format) > 0 {
		out = fmt.Sprintf(format, args...)
	} else {
		out = format
		for i := 0; i < len(args); i += 2 {
			if i+1 < len(args) {
				out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
			} else {
				out += fmt.Sprintf(" %v", args[i])
			}
		}
	}
	return newline(out)
}

func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format)-1; i++ {
		if format[i] != '%' {
			continue
		}
		if format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
