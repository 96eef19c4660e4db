package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "go-devconnect"
	defaultPerPage   = 5
	defaultSort      = "created:asc"
	defaultTimeout   = 10 * time.Second
	maxBodySize      = 4 << 20
)

// ErrProfileNotFound is returned when GitHub answers with anything but 200
var ErrProfileNotFound = errors.New("No Github profile found", errors.CategoryNotFound).
	WithTextCode("GITHUB_PROFILE_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrUnavailable is returned when GitHub could not be reached
var ErrUnavailable = errors.New("Error in fetching github repos. Try again later", errors.CategoryOperation).
	WithTextCode("GITHUB_UNAVAILABLE").
	WithCode(errors.CodeNotFound)

// Config holds GitHub API options.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	UserAgent    string
	PerPage      int
	Sort         string
	Timeout      time.Duration

	HTTPClient *http.Client
}

// Logger is the subset of the application logger used here
type Logger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Client lists public repositories of a GitHub user.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     Logger
}

// New creates a new GitHub client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.Sort == "" {
		cfg.Sort = defaultSort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
		logger:     nopLogger{},
	}
}

func (c *Client) WithLogger(l Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// Repos returns GitHub's repository list for username as received
func (c *Client) Repos(ctx context.Context, username string) (json.RawMessage, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrProfileNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reposURL(username), nil)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.config.ClientID != "" {
		req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("github request failed", "username", username, "error", err)
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.logger.Warn("github response read failed", "username", username, "error", err)
		return nil, ErrUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("github returned non 200",
			"username", username,
			"status", resp.StatusCode,
			"message", apiErrorMessage(body),
		)
		return nil, ErrProfileNotFound
	}

	if !json.Valid(body) {
		c.logger.Warn("github returned invalid json", "username", username)
		return nil, ErrUnavailable
	}

	return json.RawMessage(body), nil
}

func (c *Client) reposURL(username string) string {
	params := url.Values{
		"per_page": {strconv.Itoa(c.config.PerPage)},
		"sort":     {c.config.Sort},
	}
	return fmt.Sprintf("%s/users/%s/repos?%s", c.config.BaseURL, url.PathEscape(username), params.Encode())
}

type githubAPIError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

func apiErrorMessage(body []byte) string {
	var apiErr githubAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "github request failed"
	}

	return msg
}
