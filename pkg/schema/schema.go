// Package schema validates externally supplied JSON documents against the embedded
// JSON Schemas before they are decoded into contracts records.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

//go:embed schemas/*.schema.json
var files embed.FS

const baseURL = "https://recaudit.schemas.local/"

// ErrUnknownDocument is returned for document kinds without a schema.
var ErrUnknownDocument = errors.New("schema: unknown document kind")

// Document names a schema-validated input document.
type Document string

const (
	Product        Document = "product"
	Catalog        Document = "catalog"
	Preference     Document = "preference"
	Disclosure     Document = "disclosure"
	Recommendation Document = "recommendation"
	Context        Document = "context"
	AuditRecord    Document = "audit_record"
)

// Documents lists every supported document kind.
func Documents() []Document {
	return []Document{Product, Catalog, Preference, Disclosure, Recommendation, Context, AuditRecord}
}

var (
	compileOnce sync.Once
	compiled    map[Document]*jsonschema.Schema
	compileErr  error
)

func load() (map[Document]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		for _, d := range Documents() {
			name := string(d) + ".schema.json"
			raw, err := files.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = fmt.Errorf("schema: read %s: %w", name, err)
				return
			}
			if err := c.AddResource(baseURL+name, bytes.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("schema: load %s: %w", name, err)
				return
			}
		}
		out := make(map[Document]*jsonschema.Schema, len(Documents()))
		for _, d := range Documents() {
			s, err := c.Compile(baseURL + string(d) + ".schema.json")
			if err != nil {
				compileErr = fmt.Errorf("schema: compile %s: %w", d, err)
				return
			}
			out[d] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Validate checks raw JSON against the schema for doc. Schema violations wrap
// contracts.ErrMalformedInput.
func Validate(doc Document, raw []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[doc]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %s: invalid JSON: %w", contracts.ErrMalformedInput, doc, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %s: %w", contracts.ErrMalformedInput, doc, err)
	}
	return nil
}

// Decode validates raw against doc's schema and unmarshals it into out.
func Decode(doc Document, raw []byte, out any) error {
	if err := Validate(doc, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %w", contracts.ErrMalformedInput, doc, err)
	}
	return nil
}
