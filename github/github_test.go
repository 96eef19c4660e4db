package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReposReturnsBodyVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octo/repos", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.Equal(t, "created:asc", r.URL.Query().Get("sort"))
		assert.Equal(t, "go-devconnect", r.Header.Get("User-Agent"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"hello","stargazers_count":3}]`))
	}))
	defer server.Close()

	client := New(Config{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	repos, err := client.Repos(context.Background(), "octo")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"hello","stargazers_count":3}]`, string(repos))
}

func TestReposNon200IsProfileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).Repos(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CodeNotFound, richErr.Code)
	assert.Equal(t, "No Github profile found", richErr.Message)
}

func TestReposTransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})

	_, err := client.Repos(context.Background(), "octo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReposEmptyUsername(t *testing.T) {
	_, err := New(Config{}).Repos(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestNewDefaults(t *testing.T) {
	client := New(Config{BaseURL: "https://example.com/"})
	assert.Equal(t, "https://example.com", client.config.BaseURL)
	assert.Equal(t, defaultPerPage, client.config.PerPage)
	assert.Equal(t, defaultSort, client.config.Sort)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, "https://example.com/users/a%20b/repos?per_page=5&sort=created%3Aasc", client.reposURL("a b"))
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "Not Found", apiErrorMessage([]byte(`{"message":"Not Found"}`)))
	assert.Equal(t, "plain", apiErrorMessage([]byte("plain")))
	assert.Equal(t, "github request failed", apiErrorMessage(nil))
}
