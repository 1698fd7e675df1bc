package bundler

import (
	"context"

	"github.com/erraggy/oasplit/oaserrors"
	"github.com/getkin/kin-openapi/openapi3"
)

// validate loads data with kin-openapi and runs its document validation.
// External references are refused: a bundled document must be self-contained.
func validate(ctx context.Context, data []byte, source string) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return &oaserrors.ValidationError{Path: source, Message: "bundled document could not be loaded", Cause: err}
	}
	if err := doc.Validate(ctx); err != nil {
		return &oaserrors.ValidationError{Path: source, Message: "bundled document is not a valid OpenAPI description", Cause: err}
	}
	return nil
}
