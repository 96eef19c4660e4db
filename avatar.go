package devconnect

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

const gravatarBaseURL = "https://www.gravatar.com/avatar/"

// AvatarURL returns the Gravatar image for email: 200px, PG rated,
// falling back to the mystery-man silhouette.
func AvatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))

	q := url.Values{}
	q.Set("s", "200")
	q.Set("r", "pg")
	q.Set("d", "mm")

	return gravatarBaseURL + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}
