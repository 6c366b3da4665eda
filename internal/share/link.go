// Package share builds and parses share links. A link carries the payload
// in the URL fragment, which browsers never send to the server.
package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/illarion/darkcrypt/internal/envelope"
)

var (
	ErrEmptyPayload  = errors.New("empty payload")
	ErrInvalidOrigin = errors.New("invalid origin")
)

// BuildLink returns "<origin>/#<payload>". Path, query and fragment of
// origin are dropped. The payload is not validated or escaped: base64url
// and dots are legal fragment characters.
func BuildLink(origin, payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}

	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}

	return u.Scheme + "://" + u.Host + "/#" + payload, nil
}

// ExtractPayload accepts a share link, a bare "#fragment" or a bare payload
// and returns the payload part. Surrounding whitespace is ignored.
func ExtractPayload(input string) (string, error) {
	s := strings.TrimSpace(input)

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[i+1:]
	}

	if s == "" {
		return "", ErrEmptyPayload
	}
	return s, nil
}

// LooksLikePayload reports whether s starts with a known version tag.
// The codec still has the final word.
func LooksLikePayload(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), envelope.Version1+".")
}

// IsLink reports whether s looks like an http(s) share link
func IsLink(s string) bool {
	s = strings.TrimSpace(s)
	return (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) && strings.Contains(s, "#")
}
