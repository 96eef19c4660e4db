package devconnect

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool
	// OnResponse receives the created user and its session token
	OnResponse func(*RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User  *User
	Token string
}

// RegisterUserHandler creates accounts and signs the first session token
type RegisterUserHandler struct {
	repo     RepositoryManager
	auther   *Auther
	activity ActivitySink
	logger   Logger
}

func NewRegisterUserHandler(repo RepositoryManager, auther *Auther) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		auther:   auther,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// bcrypt runs before the transaction opens
	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.Users().FindByEmailTx(ctx, tx, event.Email)
		if err == nil {
			return ErrUserExists
		}
		if !isNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up email")
		}

		record := &User{
			Name:         event.Name,
			Email:        event.Email,
			PasswordHash: hash,
			Avatar:       AvatarURL(event.Email),
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(normalizeEmail(event.Email)); err == nil {
				record.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, record); err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		if isUniqueViolation(err) {
			return ErrUserExists
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	token, err := h.auther.TokenFor(NewIdentityFromUser(user))
	if err != nil {
		return err
	}

	emitActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			User:  user,
			Token: token,
		})
	}

	return nil
}
