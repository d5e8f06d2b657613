package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint derives the realtime endpoint from the HTTP API base: the
// scheme is rewritten to its websocket equivalent and the bearer token
// is appended as a query parameter.
func Endpoint(apiBase, token string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid api base: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a realtime url
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/chat/ws"

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
