// Package gcp builds client options for Google APIs.
package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// ClientOptions turns a credentials setting into client options. Inline service account
// JSON and a key file path are both accepted; empty means application default credentials.
func ClientOptions(credentials string, scopes ...string) []option.ClientOption {
	opts := []option.ClientOption{}
	if len(scopes) > 0 {
		opts = append(opts, option.WithScopes(scopes...))
	}
	creds := strings.TrimSpace(credentials)
	switch {
	case creds == "":
	case strings.HasPrefix(creds, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	default:
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}
