package devconnect

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-devconnect/middleware/authgate"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultTokenLookup reads the raw token from the x-auth-token header
const DefaultTokenLookup = "header:x-auth-token"

// ErrorMessage is the body of every non validation failure
type ErrorMessage struct {
	Msg string `json:"msg"`
}

// FieldMessage is one entry of a validation failure body
type FieldMessage struct {
	Msg      string `json:"msg"`
	Param    string `json:"param,omitempty"`
	Location string `json:"location,omitempty"`
}

// ValidationMessage is the body of a validation failure
type ValidationMessage struct {
	Errors []FieldMessage `json:"errors"`
}

// ErrorHandler renders rich errors as JSON. Internal failures are logged
// and reported as MessageServerError.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		} else {
			logger.Debug("request rejected",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		}

		return c.Status(status).JSON(body)
	}
}

// RequestLogger logs one line per request with method, url, status, size
// and latency. Handler errors are rendered through onError first so the
// logged status is the one sent to the client.
func RequestLogger(logger Logger, onError fiber.ErrorHandler) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if onError == nil {
				return err
			}
			if herr := onError(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Info("request",
			"method", c.Method(),
			"url", c.OriginalURL(),
			"status", c.Response().StatusCode(),
			"size", len(c.Response().Body()),
			"latency", time.Since(start).String(),
		)
		return nil
	}
}

// NewServer builds the fiber backed HTTP server with JSON error rendering
// and request logging installed ahead of every route.
func NewServer(logger Logger) router.Server[*fiber.App] {
	if logger == nil {
		logger = defLogger{}
	}

	errHandler := ErrorHandler(logger)

	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath: true,
			ErrorHandler: errHandler,
		}))
		app.Use(RequestLogger(logger, errHandler))
		return app
	})
}

func errorResponse(err error) (int, any) {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		status := richErr.Code
		if status <= 0 {
			status = statusForCategory(richErr.Category)
		}

		if status >= http.StatusInternalServerError || richErr.Category == errors.CategoryInternal {
			return http.StatusInternalServerError, ErrorMessage{Msg: MessageServerError}
		}

		if richErr.Category == errors.CategoryValidation && len(richErr.ValidationErrors) > 0 {
			out := ValidationMessage{Errors: make([]FieldMessage, 0, len(richErr.ValidationErrors))}
			for _, fe := range richErr.ValidationErrors {
				entry := FieldMessage{Msg: fe.Message, Param: fe.Field}
				if fe.Field != "" {
					entry.Location = "body"
				}
				out.Errors = append(out.Errors, entry)
			}
			return status, out
		}

		return status, ErrorMessage{Msg: richErr.Message}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code >= http.StatusInternalServerError {
			return fiberErr.Code, ErrorMessage{Msg: MessageServerError}
		}
		return fiberErr.Code, ErrorMessage{Msg: fiberErr.Message}
	}

	return http.StatusInternalServerError, ErrorMessage{Msg: MessageServerError}
}

func statusForCategory(cat errors.Category) int {
	switch cat {
	case errors.CategoryValidation, errors.CategoryBadInput, errors.CategoryConflict:
		return http.StatusBadRequest
	case errors.CategoryAuth, errors.CategoryAuthz:
		return http.StatusUnauthorized
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewAuthGate returns the middleware guarding private routes. It accepts the
// token from cfg's lookup, resolves the member and stores both in the
// request's user context.
func NewAuthGate(auther *Auther, cfg Config, logger Logger) router.MiddlewareFunc {
	if logger == nil {
		logger = defLogger{}
	}

	lookup := DefaultTokenLookup
	contextKey := "claims"
	if cfg != nil {
		if cfg.GetTokenLookup() != "" {
			lookup = cfg.GetTokenLookup()
		}
		if cfg.GetContextKey() != "" {
			contextKey = cfg.GetContextKey()
		}
	}

	return authgate.New(authgate.Config{
		ContextKey:  contextKey,
		TokenLookup: lookup,
		TokenValidator: authgate.ValidatorFunc(func(raw string) (authgate.AuthClaims, error) {
			claims, err := auther.tokens.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		UserProvider: func(ctx context.Context, claims authgate.AuthClaims) (any, error) {
			return auther.ResolveUser(ctx, claims.UserID())
		},
		ContextEnricher: func(ctx context.Context, claims authgate.AuthClaims, user any) context.Context {
			if u, ok := user.(*User); ok {
				ctx = WithContext(ctx, u)
			}
			if ac, ok := claims.(AuthClaims); ok {
				ctx = WithClaimsContext(ctx, ac)
			}
			return ctx
		},
		ErrorHandler: func(c router.Context, err error) error {
			var richErr *errors.Error
			if errors.As(err, &richErr) && richErr.Category == errors.CategoryInternal {
				return richErr
			}

			switch {
			case IsTokenExpiredError(err):
				logger.Debug("auth gate rejected expired token", "path", c.Path())
			case IsMalformedError(err):
				logger.Debug("auth gate rejected malformed token", "path", c.Path())
			default:
				logger.Debug("auth gate rejected request", "path", c.Path(), "error", err)
			}
			return ErrUnauthorized
		},
	})
}

// CurrentUser returns the member stored by the auth gate
func CurrentUser(c router.Context) (*User, error) {
	user, ok := FromContext(c.Context())
	if !ok {
		return nil, ErrUnauthorized
	}
	return user, nil
}
