package auth

import (
	"fmt"
	"net/http"

	"github.com/ynnoj/gatsby-source-printful/pkg/config"
	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
)

// Handler defines the interface for auth handlers
type Handler interface {
	ApplyAuth(req *http.Request) error
}

// CreateHandler builds the handler selected by the source config.
func CreateHandler(src config.Source) (Handler, error) {
	if src.APIKey == "" {
		return nil, errors.WrapError(
			fmt.Errorf("api key is required"),
			errors.ErrConfiguration,
			"create auth handler",
		)
	}

	switch src.Auth {
	case config.AuthTypeBearer, "":
		return &BearerAuth{Token: src.APIKey, StoreID: src.StoreID}, nil
	case config.AuthTypeBasic:
		return NewBasicAuth(src.APIKey), nil
	default:
		return nil, errors.WrapError(
			fmt.Errorf("unsupported auth type: %s", src.Auth),
			errors.ErrConfiguration,
			"create auth handler",
		)
	}
}
