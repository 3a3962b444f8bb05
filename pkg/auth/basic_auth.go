package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
)

// BasicAuth sends the whole API key base64 encoded as basic credentials,
// the scheme used by legacy Printful store keys.
type BasicAuth struct {
	Key string
}

// NewBasicAuth creates a new basic authentication handler
func NewBasicAuth(key string) *BasicAuth {
	return &BasicAuth{
		Key: key,
	}
}

// ApplyAuth adds the basic auth header to the request
func (b *BasicAuth) ApplyAuth(req *http.Request) error {
	if b.Key == "" {
		return errors.WrapError(
			fmt.Errorf("key is empty"),
			errors.ErrConfiguration,
			"apply basic auth",
		)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(b.Key))
	req.Header.Set("Authorization", "Basic "+encoded)

	return nil
}

// String never includes the key
func (b *BasicAuth) String() string {
	return "BasicAuth(key: [REDACTED])"
}
