package swagger

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yml
var rawDocument []byte

const SpecPath = "/openapi.yml"

// Docs serves the embedded OpenAPI document and the Swagger UI that reads it.
type Docs struct {
	doc *openapi3.T
	raw []byte
}

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*Docs, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawDocument)
	if err != nil {
		return nil, fmt.Errorf("loading openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validating openapi document: %w", err)
	}
	return &Docs{doc: doc, raw: rawDocument}, nil
}

// Document returns the parsed document.
func (d *Docs) Document() *openapi3.T {
	return d.doc
}

func (d *Docs) ServeSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(d.raw)
}

func (d *Docs) UI() http.Handler {
	return httpSwagger.Handler(httpSwagger.URL(SpecPath))
}
