package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/recordwire/avroforge/pkg/compile"
	"github.com/recordwire/avroforge/pkg/config"
	"github.com/recordwire/avroforge/pkg/definition"
	"github.com/recordwire/avroforge/pkg/registry"
)

const (
	defaultDirMode  = 0o755
	defaultFileMode = 0o644
)

func main() {
	log.Println("[Forge] Starting avroforge...")

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := config.Load(configPath)

	definitions, err := loadDefinitions(cfg.Definitions)
	if err != nil {
		log.Fatalf("[Forge] Failed to load definitions: %v", err)
	}
	if len(definitions) == 0 {
		log.Fatalf("[Forge] No record definitions found in %s", cfg.Definitions)
	}
	log.Printf("[Forge] Loaded %d record definition(s)", len(definitions))

	if err := os.MkdirAll(cfg.Output.Dir, defaultDirMode); err != nil {
		log.Fatalf("[Forge] Failed to create output dir: %v", err)
	}

	var publisher *registry.Publisher
	if cfg.Registry.Enabled {
		publisher = registry.NewPublisher(cfg.Registry.URL)
	}

	// Every compilation owns its own registry and caches, so records compile
	// in parallel. A record that fails validation is reported and skipped
	// without failing the batch.
	var g errgroup.Group
	for _, d := range definitions {
		g.Go(func() error {
			return compileRecord(d, &cfg, publisher)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("[Forge] %v", err)
	}
	log.Println("[Forge] Done.")
}

// loadDefinitions loads every record definition YAML file under dir.
func loadDefinitions(dir string) ([]definition.Definition, error) {
	var defs []definition.Definition

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || (filepath.Ext(path) != ".yaml" && filepath.Ext(path) != ".yml") {
			return nil
		}

		d, err := definition.LoadFromFile(path)
		if err != nil {
			log.Printf("[Forge] Failed to load definition from %s: %v", path, err)
			return nil
		}

		defs = append(defs, d)
		return nil
	})

	return defs, err
}

// compileRecord runs one definition through the pipeline and writes outputs.
func compileRecord(d definition.Definition, cfg *config.AppConfig, publisher *registry.Publisher) error {
	req, err := d.Resolve()
	if err != nil {
		return fmt.Errorf("resolve %s: %w", d.Name, err)
	}

	result, diags, err := compile.Run(req)
	if err != nil {
		return err
	}
	if len(diags) > 0 {
		for _, diag := range diags {
			log.Printf("[Forge] %s.%s: %s", d.Name, diag.Field, diag.Message)
		}
		log.Printf("[Forge] Skipping %s: %d unsupported field(s)", d.Name, len(diags))
		return nil
	}

	if result.Schema == "" {
		log.Printf("[Forge] %s: accessors generated, schema generation opted out", d.Name)
		return nil
	}

	out := filepath.Join(cfg.Output.Dir, d.Name+".avsc")
	if err := os.WriteFile(out, []byte(result.Schema), defaultFileMode); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Printf("[Forge] %s: schema written to %s (%d field position(s))", d.Name, out, result.Accessor.Len())

	if publisher != nil {
		subject := d.Name + cfg.Registry.SubjectSuffix
		if _, err := publisher.Publish(subject, result.Schema); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		log.Printf("[Forge] %s: published as subject %s", d.Name, subject)
	}
	return nil
}
