package schema

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeServerURL validates a websocket endpoint. Allowed schemes: ws, wss.
// http and https are rewritten to their websocket equivalents.
func NormalizeServerURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: server url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: server url: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported server url scheme %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: server url has no host", ErrInvalidConfig)
	}
	return u.String(), nil
}

// NormalizeDocumentURL validates the document reference sent with load.
// It must be non-empty and free of whitespace.
func NormalizeDocumentURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: document url is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", fmt.Errorf("%w: document url contains whitespace", ErrInvalidConfig)
	}
	return trimmed, nil
}
