package devconnect

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserProvider resolves members for the login and session flows
type UserProvider struct {
	store  Users
	logger Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity.
// Unknown emails and wrong passwords fail with the same error after the same work.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			compareDummyHash(password)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier accepts a user id or an email
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *User
		err  error
	)

	if _, perr := uuid.Parse(identifier); perr == nil {
		user, err = u.store.GetByID(ctx, identifier)
	} else if strings.Contains(identifier, "@") {
		user, err = u.store.FindByEmail(ctx, identifier)
	} else {
		return nil, ErrUnauthorized
	}

	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve identity")
	}

	if user == nil {
		return nil, ErrUnauthorized
	}

	return NewIdentityFromUser(user), nil
}
