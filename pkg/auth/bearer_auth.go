package auth

import (
	"fmt"
	"net/http"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
)

// StoreIDHeader picks the store when a token has access to several
const StoreIDHeader = "X-PF-Store-Id"

// BearerAuth presents a Printful private token. Account-level tokens also
// need StoreID to say which store the request is for.
type BearerAuth struct {
	Token   string
	StoreID string
}

func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{Token: token}
}

func (b *BearerAuth) ApplyAuth(req *http.Request) error {
	if b.Token == "" {
		return errors.WrapError(
			fmt.Errorf("token is empty"),
			errors.ErrConfiguration,
			"apply bearer auth",
		)
	}

	req.Header.Set("Authorization", "Bearer "+b.Token)
	if b.StoreID != "" {
		req.Header.Set(StoreIDHeader, b.StoreID)
	}
	return nil
}

// String never includes the token
func (b *BearerAuth) String() string {
	if b.StoreID != "" {
		return fmt.Sprintf("BearerAuth(store %s, token: [REDACTED])", b.StoreID)
	}
	return "BearerAuth(token: [REDACTED])"
}
