// Package openapi embeds and serves the API description.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

//go:embed openapi.yaml
var rawSpec []byte

// Document is the parsed, validated API description.
type Document struct {
	spec *openapi3.T
	json []byte
}

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*Document, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	body, err := spec.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode openapi document: %w", err)
	}
	return &Document{spec: spec, json: body}, nil
}

// HasOperation reports whether the document describes method on path.
func (d *Document) HasOperation(method, path string) bool {
	item := d.spec.Paths.Find(path)
	if item == nil {
		return false
	}
	return item.GetOperation(method) != nil
}

// Operations lists every documented method and path pair.
func (d *Document) Operations() map[string][]string {
	out := make(map[string][]string)
	for path, item := range d.spec.Paths.Map() {
		for method := range item.Operations() {
			out[path] = append(out[path], method)
		}
	}
	return out
}

// Handler serves the document as JSON.
func (d *Document) Handler(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(d.json)
}
