package devconnect

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []any
		want   string
	}{
		{name: "printf verbs", format: "hello %s", args: []any{"ada"}, want: "hello ada\n"},
		{name: "key value pairs", format: "login", args: []any{"user", "ada", "ok", true}, want: "login user=ada ok=true\n"},
		{name: "odd pair", format: "login", args: []any{"user", "ada", "dangling"}, want: "login user=ada dangling\n"},
		{name: "escaped percent", format: "100%% done", want: "100%% done\n"},
		{name: "keeps newline", format: "done\n", want: "done\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(tt.format, tt.args...))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   any
	}{
		{
			name:       "not owner",
			err:        ErrNotOwner,
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrorMessage{Msg: "User not authorized"},
		},
		{
			name:       "post not found",
			err:        ErrPostNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorMessage{Msg: "Post not found"},
		},
		{
			name:       "no profile",
			err:        ErrNoProfile,
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorMessage{Msg: "There is no profile for this user"},
		},
		{
			name:       "invalid credentials",
			err:        ErrMismatchedHashAndPassword,
			wantStatus: http.StatusBadRequest,
			wantBody:   ValidationMessage{Errors: []FieldMessage{{Msg: "Invalid Credentials"}}},
		},
		{
			name:       "internal hides details",
			err:        errors.Wrap(fmt.Errorf("disk full"), errors.CategoryInternal, "failed to save"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorMessage{Msg: MessageServerError},
		},
		{
			name:       "category fallback",
			err:        errors.New("gone", errors.CategoryNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorMessage{Msg: "gone"},
		},
		{
			name:       "fiber error",
			err:        fiber.NewError(http.StatusMethodNotAllowed, "Method Not Allowed"),
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   ErrorMessage{Msg: "Method Not Allowed"},
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorMessage{Msg: MessageServerError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	err := RegisterPayload{Name: "Ada", Email: "nope", Password: "123"}.Validate()
	require.Error(t, err)

	status, body := errorResponse(err)
	assert.Equal(t, http.StatusBadRequest, status)

	msg, ok := body.(ValidationMessage)
	require.True(t, ok)
	assert.Equal(t, []FieldMessage{
		{Msg: "Please enter a valid email", Param: "email", Location: "body"},
		{Msg: "Password must be at least six character long", Param: "password", Location: "body"},
	}, msg.Errors)
}

func TestIsUniqueViolation(t *testing.T) {
	mapped := errors.NewNonRetryable("duplicated", repository.CategoryDatabaseDuplicate)
	assert.True(t, isUniqueViolation(mapped))

	assert.False(t, isUniqueViolation(fmt.Errorf("UNIQUE constraint failed: users.email")), "plain text is not classified")
	assert.False(t, isUniqueViolation(fmt.Errorf("no rows")))
	assert.False(t, isUniqueViolation(nil))
}

func TestIsUniqueViolation_SQLiteDriver(t *testing.T) {
	ctx := context.Background()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "CREATE TABLE accounts (email TEXT NOT NULL UNIQUE)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO accounts (email) VALUES (?)", "ada@example.com")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO accounts (email) VALUES (?)", "ada@example.com")
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	mapped := mapStoreError(err, repository.DetectDriver(db))
	assert.True(t, repository.IsDuplicatedKey(mapped), "got %v", mapped)
	assert.True(t, isUniqueViolation(mapped))
}

func TestTxError(t *testing.T) {
	assert.NoError(t, txError(nil, "x"))
	assert.Same(t, ErrPostNotFound, txError(ErrPostNotFound, "x"))

	wrapped := txError(fmt.Errorf("locked"), "failed to update post")
	var richErr *errors.Error
	require.True(t, errors.As(wrapped, &richErr))
	assert.Equal(t, errors.CategoryInternal, richErr.Category)
}
