package devconnect

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther issues tokens for valid credentials and resolves tokens back to members
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

// NewAuthenticator returns an Auther backed by provider and tokens
func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	return &Auther{
		provider: provider,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (a *Auther) WithLogger(l Logger) *Auther {
	if l != nil {
		a.logger = l
	}
	return a
}

func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.activity = normalizeActivitySink(sink)
	return a
}

// Login verifies the credentials and returns a signed token
func (a *Auther) Login(ctx context.Context, email, password string) (string, error) {
	identity, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		if hasTextCode(err, TextCodeInvalidCredentials) {
			emitActivity(ctx, a.activity, a.logger, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Metadata:  map[string]any{"email": normalizeEmail(email)},
			})
			return "", ErrMismatchedHashAndPassword
		}
		a.logger.Error("login verify identity failed", "error", err)
		return "", err
	}

	token, err := a.TokenFor(identity)
	if err != nil {
		return "", err
	}

	emitActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    identity.ID(),
	})

	return token, nil
}

// TokenFor signs a session token for identity
func (a *Auther) TokenFor(identity Identity) (string, error) {
	token, err := a.tokens.Generate(identity)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate token")
	}
	return token, nil
}

// Authenticate resolves token to its member. Every failure is ErrUnauthorized
// except store errors, which are returned as internal errors.
func (a *Auther) Authenticate(ctx context.Context, token string) (*User, AuthClaims, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		switch {
		case IsTokenExpiredError(err):
			a.logger.Debug("rejected expired token")
		case IsMalformedError(err):
			a.logger.Debug("rejected malformed token")
		default:
			a.logger.Debug("rejected token", "error", err)
		}
		return nil, nil, ErrUnauthorized
	}

	user, err := a.ResolveUser(ctx, claims.UserID())
	if err != nil {
		return nil, nil, err
	}

	return user, claims, nil
}

// ResolveUser loads the member behind a token subject
func (a *Auther) ResolveUser(ctx context.Context, userID string) (*User, error) {
	identity, err := a.provider.FindIdentityByIdentifier(ctx, userID)
	if err != nil {
		return nil, err
	}

	holder, ok := identity.(interface{ User() *User })
	if !ok || holder.User() == nil {
		return nil, ErrUnauthorized
	}

	return holder.User(), nil
}
