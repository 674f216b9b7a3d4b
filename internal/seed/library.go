// Package seed loads sample data and prompt libraries into the database.
// The CLI's seed and import-prompts commands are thin wrappers around it.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/services"
)

//go:embed prompts.yaml
var defaultLibrary []byte

// Library is the YAML document read by import-prompts.
type Library struct {
	Prompts []services.PromptInput `yaml:"prompts"`
}

// ParseLibrary decodes a prompt library. Unknown keys are rejected so a
// typo does not silently drop a field.
func ParseLibrary(r io.Reader) ([]services.PromptInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var lib Library
	if err := dec.Decode(&lib); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("prompt library is empty")
		}
		return nil, fmt.Errorf("parse prompt library: %w", err)
	}
	for i, p := range lib.Prompts {
		if p.Name == "" || p.Content == "" || p.System == "" {
			return nil, fmt.Errorf("prompt #%d (%q): name, system and content are required", i+1, p.PromptID)
		}
	}
	return lib.Prompts, nil
}

// PromptImporter stores one library entry.
type PromptImporter interface {
	Import(ctx context.Context, in services.PromptInput) (*domain.Prompt, services.ImportOutcome, error)
}

// ImportSummary counts what ImportPrompts did.
type ImportSummary struct {
	Created   int
	Versioned int
	Unchanged int
}

// ImportPrompts imports every entry in order and stops at the first error.
func ImportPrompts(ctx context.Context, svc PromptImporter, prompts []services.PromptInput) (ImportSummary, error) {
	var sum ImportSummary
	for _, in := range prompts {
		_, outcome, err := svc.Import(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("import %q: %w", in.Name, err)
		}
		switch outcome {
		case services.ImportCreated:
			sum.Created++
		case services.ImportVersioned:
			sum.Versioned++
		default:
			sum.Unchanged++
		}
	}
	return sum, nil
}
