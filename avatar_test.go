package devconnect_test

import (
	"net/url"
	"strings"
	"testing"

	devconnect "github.com/goliatone/go-devconnect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarURL(t *testing.T) {
	got := devconnect.AvatarURL("MyEmailAddress@example.com ")

	u, err := url.Parse(got)
	require.NoError(t, err)

	assert.Equal(t, "www.gravatar.com", u.Host)
	// md5 of the trimmed, lower cased address
	assert.True(t, strings.HasSuffix(u.Path, "/0bc83cb571cd1c50ba6f3e8a78ef1346"), u.Path)
	assert.Equal(t, "200", u.Query().Get("s"))
	assert.Equal(t, "pg", u.Query().Get("r"))
	assert.Equal(t, "mm", u.Query().Get("d"))
}

func TestAvatarURL_CaseInsensitive(t *testing.T) {
	assert.Equal(t,
		devconnect.AvatarURL("ada@example.com"),
		devconnect.AvatarURL("ADA@Example.com"),
	)
}
