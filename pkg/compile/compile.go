// Package compile runs one record type through validation, schema
// compilation, and accessor generation, publishing results all-or-nothing.
package compile

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/recordwire/avroforge/pkg/accessor"
	"github.com/recordwire/avroforge/pkg/descriptor"
	"github.com/recordwire/avroforge/pkg/schemagen"
	"github.com/recordwire/avroforge/pkg/validate"
)

// Request is one candidate record type supplied by the host pipeline.
type Request struct {
	Name      string
	Namespace string
	Fields    []descriptor.Field

	// SkipSchema lets a record supply its own schema while still getting
	// generated accessors.
	SkipSchema bool
}

// Result carries the outputs for one successfully compiled record.
type Result struct {
	Name      string
	Namespace string
	Schema    string // indented Avro JSON; empty when SkipSchema was set
	Accessor  *accessor.Accessor
}

// Run compiles a single record type. When validation finds unsupported
// fields, the diagnostics are returned and neither schema nor accessors are
// produced. Schema compilation and accessor generation are pure functions of
// the same immutable field list, so they run concurrently; every run owns
// fresh registry and cache state, so unrelated records may be compiled in
// parallel by the caller.
func Run(req Request) (*Result, []validate.Diagnostic, error) {
	if diags := validate.Validate(req.Fields); len(diags) > 0 {
		return nil, diags, nil
	}

	var (
		schema string
		acc    *accessor.Accessor
	)

	var g errgroup.Group
	if !req.SkipSchema {
		g.Go(func() error {
			rec, err := schemagen.Compile(req.Name, req.Namespace, req.Fields)
			if err != nil {
				return fmt.Errorf("compile schema for %s: %w", req.Name, err)
			}
			rendered, err := schemagen.Render(rec)
			if err != nil {
				return err
			}
			schema = rendered
			return nil
		})
	}
	g.Go(func() error {
		generated, err := accessor.Generate(req.Fields)
		if err != nil {
			return fmt.Errorf("generate accessors for %s: %w", req.Name, err)
		}
		acc = generated
		return nil
	})
	if err := g.Wait(); err != nil {
		// All-or-nothing: no partial output escapes.
		return nil, nil, err
	}

	return &Result{
		Name:      req.Name,
		Namespace: req.Namespace,
		Schema:    schema,
		Accessor:  acc,
	}, nil, nil
}
