package devconnect

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

const (
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeNotOwner           = "NOT_OWNER"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeUserExists         = "USER_EXISTS"
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodePasswordTooLong    = "PASSWORD_TOO_LONG"
	TextCodeNoProfile          = "PROFILE_MISSING"
	TextCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	TextCodePostNotFound       = "POST_NOT_FOUND"
	TextCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	TextCodeExperienceNotFound = "EXPERIENCE_NOT_FOUND"
	TextCodeEducationNotFound  = "EDUCATION_NOT_FOUND"
	TextCodeAlreadyLiked       = "POST_ALREADY_LIKED"
	TextCodeNotLiked           = "POST_NOT_LIKED"
	TextCodeInvalidBody        = "INVALID_BODY"
	TextCodeNoGithubProfile    = "GITHUB_PROFILE_MISSING"
)

// MessageServerError is the only detail clients see for unexpected failures
const MessageServerError = "Server error"

// ErrTokenExpired is returned when a token is past its expiration time
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail signature or format checks
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the single response for every failed gate check
var ErrUnauthorized = errors.New("You are not authorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrNotOwner is returned when the caller does not own the resource
var ErrNotOwner = errors.New("User not authorized", errors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword covers both unknown email and wrong password
var ErrMismatchedHashAndPassword = errors.NewValidation("Invalid Credentials",
	errors.FieldError{Message: "Invalid Credentials"},
).WithTextCode(TextCodeInvalidCredentials).WithCode(errors.CodeBadRequest)

// ErrUserExists is returned when registering an email already in use
var ErrUserExists = errors.NewValidation("User already exists",
	errors.FieldError{Message: "User already exists"},
).WithTextCode(TextCodeUserExists).WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash
var ErrPasswordTooLong = errors.NewValidation("Password must not exceed 72 bytes",
	errors.FieldError{Field: "password", Message: "Password must not exceed 72 bytes"},
).WithTextCode(TextCodePasswordTooLong).WithCode(errors.CodeBadRequest)

var ErrNoProfile = errors.New("There is no profile for this user", errors.CategoryNotFound).
	WithTextCode(TextCodeNoProfile).
	WithCode(errors.CodeBadRequest)

var ErrProfileNotFound = errors.New("Profile not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeBadRequest)

var ErrPostNotFound = errors.New("Post not found", errors.CategoryNotFound).
	WithTextCode(TextCodePostNotFound).
	WithCode(errors.CodeNotFound)

var ErrCommentNotFound = errors.New("Comment does not exist", errors.CategoryNotFound).
	WithTextCode(TextCodeCommentNotFound).
	WithCode(errors.CodeNotFound)

var ErrExperienceNotFound = errors.New("Experience not found", errors.CategoryNotFound).
	WithTextCode(TextCodeExperienceNotFound).
	WithCode(errors.CodeNotFound)

var ErrEducationNotFound = errors.New("Education not found", errors.CategoryNotFound).
	WithTextCode(TextCodeEducationNotFound).
	WithCode(errors.CodeNotFound)

var ErrPostAlreadyLiked = errors.New("Post already liked", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyLiked).
	WithCode(errors.CodeBadRequest)

var ErrPostNotLiked = errors.New("Post has not yet been liked", errors.CategoryBadInput).
	WithTextCode(TextCodeNotLiked).
	WithCode(errors.CodeBadRequest)

// ErrNoGithubProfile is returned when repository lookups are not available
var ErrNoGithubProfile = errors.New("No Github profile found", errors.CategoryNotFound).
	WithTextCode(TextCodeNoGithubProfile).
	WithCode(errors.CodeNotFound)

// ErrInvalidBody is returned when a request body cannot be decoded
var ErrInvalidBody = errors.New("Invalid request body", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidBody).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError will check for tokens that could not be verified
func IsMalformedError(err error) bool {
	return hasTextCode(err, TextCodeTokenMalformed)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// isNotFound matches both store misses and rich not found errors
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || errors.IsNotFound(err)
}

// storeDriver names the dialect used to classify store errors
const storeDriver = "sqlite"

// mapStoreError classifies a raw store error. The repository mapper only
// knows the cgo sqlite driver, so pure Go driver unique failures are mapped
// here on their extended result code.
func mapStoreError(err error, driver string) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if !errors.IsWrapped(err) && errors.As(err, &sqliteErr) &&
		sqliteErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE {
		dup := errors.NewNonRetryable("Duplicate key value violates unique constraint", repository.CategoryDatabaseDuplicate).
			WithCode(errors.CodeConflict).
			WithTextCode("DUPLICATE_KEY")
		dup.Source = err
		return dup
	}

	return repository.MapDatabaseError(err, driver)
}

// isUniqueViolation reports duplicate key failures
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if repository.IsDuplicatedKey(mapStoreError(err, storeDriver)) {
		return true
	}

	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
}
