// Package urlcheck validates the URLs handed to the auditor. It is shared by
// the server and the client and must stay free of their dependencies.
package urlcheck

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError rejects a URL before it reaches the executor.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.URL == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.URL)
}

// Normalize trims raw and checks that it is an absolute URL with a scheme
// and a host.
func Normalize(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", &ValidationError{Reason: "url is required"}
	}

	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &ValidationError{URL: u, Reason: "not a valid absolute URL"}
	}

	return u, nil
}
