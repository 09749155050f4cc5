// Package auth provides bearer-token credentials for the lotto API.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnauthenticated is returned when no credential is available. The push
// channel treats this as a hard failure: there is no anonymous mode.
var ErrUnauthenticated = errors.New("no authentication credential")

// Credentials holds the bearer token used on REST calls and as the push
// channel handshake parameter.
type Credentials struct {
	Token string
}

// Load builds credentials from an inline token or a token file. The inline
// token wins when both are set.
func Load(token, tokenFile string) (*Credentials, error) {
	if token == "" && tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read token file: %w", err)
		}
		token = string(data)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	return &Credentials{Token: token}, nil
}

// Header returns the Authorization header value for REST calls.
func (c *Credentials) Header() string {
	return "Bearer " + c.Token
}

// QueryParam returns the token as supplied in the push channel handshake.
func (c *Credentials) QueryParam() string {
	return c.Token
}
