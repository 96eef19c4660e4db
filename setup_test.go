package devconnect_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	devconnect "github.com/goliatone/go-devconnect"
	"github.com/goliatone/go-devconnect/config"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	devconnect.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

const testSigningKey = "test-signing-key-0123456789"

type testConfig struct {
	expiration int
}

func (testConfig) GetSigningKey() string    { return testSigningKey }
func (testConfig) GetSigningMethod() string { return "HS256" }
func (testConfig) GetContextKey() string    { return "claims" }
func (c testConfig) GetTokenExpiration() int {
	if c.expiration == 0 {
		return 168
	}
	return c.expiration
}
func (testConfig) GetTokenLookup() string { return "header:x-auth-token" }
func (testConfig) GetIssuer() string      { return "devconnect-test" }
func (testConfig) GetHashidUserIDs() bool { return false }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// stepClock advances one second per call so creation times are distinct
type stepClock struct {
	mu   sync.Mutex
	next time.Time
}

func newStepClock() *stepClock {
	return &stepClock{next: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}

type capturingSink struct {
	mu     sync.Mutex
	events []devconnect.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt devconnect.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) types() []devconnect.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]devconnect.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeRepoLookup struct {
	body json.RawMessage
	err  error
}

func (f fakeRepoLookup) Repos(context.Context, string) (json.RawMessage, error) {
	return f.body, f.err
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	client := newTestPersistence(t)
	require.NoError(t, devconnect.Migrate(context.Background(), client, nopLogger{}))
	return client.DB()
}

func newTestPersistence(t *testing.T) *persistence.Client {
	t.Helper()

	pcfg := config.Persistence{Driver: "sqlite", DSN: "file::memory:"}

	sqldb, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	client, err := devconnect.NewPersistence(pcfg, sqldb)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.DB().Close()
	})

	return client
}

type stack struct {
	db       *bun.DB
	repo     devconnect.RepositoryManager
	tokens   *devconnect.TokenServiceImpl
	auther   *devconnect.Auther
	register *devconnect.RegisterUserHandler
	profiles *devconnect.ProfileService
	posts    *devconnect.PostService
	sink     *capturingSink
	clock    *stepClock
	app      *fiber.App
}

func newStack(t *testing.T, opts ...devconnect.ControllerOption) *stack {
	t.Helper()

	s := &stack{
		db:    newTestDB(t),
		sink:  &capturingSink{},
		clock: newStepClock(),
	}

	s.repo = devconnect.NewRepositoryManager(s.db)

	tokens, err := devconnect.NewTokenServiceFromConfig(testConfig{}, nopLogger{})
	require.NoError(t, err)
	s.tokens = tokens

	s.auther = devconnect.NewAuthenticator(devconnect.NewUserProvider(s.repo.Users()), tokens).
		WithLogger(nopLogger{}).
		WithActivitySink(s.sink)

	s.register = devconnect.NewRegisterUserHandler(s.repo, s.auther).
		WithLogger(nopLogger{}).
		WithActivitySink(s.sink)

	s.profiles = devconnect.NewProfileService(s.repo).
		WithLogger(nopLogger{}).
		WithActivitySink(s.sink)

	s.posts = devconnect.NewPostService(s.repo).
		WithLogger(nopLogger{}).
		WithClock(s.clock.Now)

	srv := devconnect.NewServer(nopLogger{})

	base := []devconnect.ControllerOption{
		devconnect.WithRepository(s.repo),
		devconnect.WithAuther(s.auther),
		devconnect.WithRegisterHandler(s.register),
		devconnect.WithProfileService(s.profiles),
		devconnect.WithPostService(s.posts),
		devconnect.WithGate(devconnect.NewAuthGate(s.auther, testConfig{}, nopLogger{})),
		devconnect.WithControllerLogger(nopLogger{}),
	}
	devconnect.RegisterRoutes(srv.Router(), append(base, opts...)...)
	s.app = srv.WrappedRouter()

	return s
}

// registerUser creates a member through the register handler
func (s *stack) registerUser(t *testing.T, name, email string) (*devconnect.User, string) {
	t.Helper()

	var res *devconnect.RegisterUserResponse
	err := s.register.Execute(context.Background(), devconnect.RegisterUserMessage{
		Name:     name,
		Email:    email,
		Password: "secret123",
		OnResponse: func(r *devconnect.RegisterUserResponse) {
			res = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	return res.User, res.Token
}

func (s *stack) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}

	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}
