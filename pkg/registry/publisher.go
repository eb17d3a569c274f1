// Package registry publishes generated schemas to a Confluent schema
// registry, creating a subject only when no equivalent schema is already
// registered.
package registry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/riferrei/srclient"
	"golang.org/x/sync/singleflight"
)

// Publisher wraps a schema registry client with per-subject caching and
// duplicate-request suppression. All state is owned by the instance, never
// package-global, so independent pipelines can publish concurrently.
type Publisher struct {
	client    *srclient.SchemaRegistryClient
	bySubject sync.Map // map[string]*srclient.Schema
	flight    singleflight.Group
}

func NewPublisher(url string) *Publisher {
	return &Publisher{client: srclient.CreateSchemaRegistryClient(url)}
}

// Publish registers schemaJSON under subject unless the registry already
// holds an equivalent schema for it. Equivalence is decided on normalized
// JSON: key order inside objects is irrelevant, but field order is part of
// the wire contract and is compared as-is.
func (p *Publisher) Publish(subject, schemaJSON string) (*srclient.Schema, error) {
	if v, ok := p.bySubject.Load(subject); ok {
		return v.(*srclient.Schema), nil
	}

	val, err, _ := p.flight.Do(subject, func() (interface{}, error) {
		s, err := p.compareOrCreate(subject, schemaJSON)
		if err != nil {
			return nil, err
		}
		p.bySubject.Store(subject, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*srclient.Schema), nil
}

func (p *Publisher) compareOrCreate(subject, schemaJSON string) (*srclient.Schema, error) {
	existing, err := p.client.GetLatestSchema(subject)
	if err != nil {
		// No registered schema yet; create the first version.
		return p.client.CreateSchema(subject, schemaJSON, srclient.Avro)
	}

	existingNorm, err := normalizeJSON(existing.Schema())
	if err != nil {
		return nil, fmt.Errorf("normalize registered schema for %s: %w", subject, err)
	}
	candidateNorm, err := normalizeJSON(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("normalize generated schema for %s: %w", subject, err)
	}

	if existingNorm == candidateNorm {
		return existing, nil
	}

	log.Printf("[Registry] Schema for %s differs from registered version, creating new version", subject)
	return p.client.CreateSchema(subject, schemaJSON, srclient.Avro)
}

// normalizeJSON re-marshals a schema document so that object key order no
// longer matters. Arrays (field lists, unions, symbols) keep their order:
// reordering those changes the wire contract.
func normalizeJSON(schemaJSON string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return "", fmt.Errorf("parse schema JSON: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal normalized schema: %w", err)
	}
	return string(out), nil
}
