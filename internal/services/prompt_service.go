package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/utils"
)

// defaultPromptCategory is stored when a prompt is saved without one.
const defaultPromptCategory = "general"

// placeholderRE matches {variable} tokens in prompt content.
var placeholderRE = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// PromptInput is the payload for a new prompt family or a new version of
// one. A nil Variables list is derived from the content's placeholders.
type PromptInput struct {
	PromptID    string   `json:"prompt_id"   yaml:"prompt_id"   binding:"omitempty,max=128"`
	System      string   `json:"system"      yaml:"system"      binding:"required,max=64"`
	Category    string   `json:"category"    yaml:"category"    binding:"omitempty,max=64"`
	Name        string   `json:"name"        yaml:"name"        binding:"required,max=255"`
	Description string   `json:"description" yaml:"description"`
	Content     string   `json:"content"     yaml:"content"     binding:"required"`
	Variables   []string `json:"variables"   yaml:"variables"   binding:"omitempty,dive,varname"`
}

// PromptDetail is one prompt row and every version of its family, newest
// first.
type PromptDetail struct {
	Prompt   domain.Prompt   `json:"prompt"`
	Versions []domain.Prompt `json:"versions"`
}

// RenderResult is a prompt with its placeholders substituted. Missing
// lists placeholders that had no value and were left in place.
type RenderResult struct {
	Text    string   `json:"text"`
	Missing []string `json:"missing"`
}

// ImportOutcome reports what Import did with one prompt.
type ImportOutcome string

const (
	ImportCreated   ImportOutcome = "created"
	ImportVersioned ImportOutcome = "versioned"
	ImportUnchanged ImportOutcome = "unchanged"
)

// PromptService manages the versioned prompt library.
type PromptService struct {
	DB *gorm.DB
}

// ListPage returns one page of prompt rows (all versions) matching f, most
// recently updated first.
func (s *PromptService) ListPage(ctx context.Context, f filters.PromptFilters, page, pageSize int) ([]domain.Prompt, int64, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("filter.system", f.System),
			attribute.String("filter.category", f.Category),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = utils.ClampPage(page, pageSize)
	total, err := repo.CountPrompts(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Prompt{}, 0, nil
	}
	items, err := repo.ListPromptsPage(ctx, s.DB, f, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the row count and latest update of the prompts matching
// f, for list ETags.
func (s *PromptService) Stats(ctx context.Context, f filters.PromptFilters) (int64, *time.Time, error) {
	return repo.PromptsStats(ctx, s.DB, f)
}

// Get returns a prompt row and its family's version history.
func (s *PromptService) Get(ctx context.Context, id string) (*PromptDetail, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("prompt.id", id)),
	)
	defer span.End()

	p, err := repo.GetPrompt(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	versions, err := repo.ListPromptVersions(ctx, s.DB, p.PromptID)
	if err != nil {
		return nil, err
	}
	return &PromptDetail{Prompt: *p, Versions: versions}, nil
}

// Create starts a new prompt family at version 1, active. A blank
// prompt_id is derived from the name.
func (s *PromptService) Create(ctx context.Context, in PromptInput) (*domain.Prompt, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("prompt.family", in.PromptID)),
	)
	defer span.End()

	in, err := normalizePrompt(in)
	if err != nil {
		return nil, err
	}
	if in.PromptID == "" {
		in.PromptID = slugify(in.Name)
	}
	if in.PromptID == "" {
		return nil, fmt.Errorf("%w: prompt_id is required", ErrInvalidInput)
	}

	p := newPromptRow(in, 1)
	if err := repo.CreatePrompt(ctx, s.DB, p); err != nil {
		if repo.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: prompt_id %q already exists", ErrInvalidInput, in.PromptID)
		}
		return nil, err
	}
	return p, nil
}

// UpdateVersion appends a new active version to a prompt family and
// deactivates every earlier version, atomically. A family with no rows
// starts at version 1.
func (s *PromptService) UpdateVersion(ctx context.Context, promptID string, in PromptInput) (*domain.Prompt, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "UpdateVersion",
		trace.WithAttributes(attribute.String("prompt.family", promptID)),
	)
	defer span.End()

	promptID = strings.TrimSpace(promptID)
	if promptID == "" {
		return nil, fmt.Errorf("%w: prompt_id is required", ErrInvalidInput)
	}
	in.PromptID = promptID
	in, err := normalizePrompt(in)
	if err != nil {
		return nil, err
	}

	var created *domain.Prompt
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := 1
		latest, err := repo.LatestPromptVersion(ctx, tx, promptID)
		switch {
		case err == nil:
			next = latest.Version + 1
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		if err := repo.DeactivatePromptVersions(ctx, tx, promptID); err != nil {
			return err
		}
		created = newPromptRow(in, next)
		return repo.CreatePrompt(ctx, tx, created)
	})
	if repo.IsDuplicate(err) && created != nil {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionConflict, promptID, created.Version)
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("prompt.version", created.Version))
	return created, nil
}

// ToggleActive sets one prompt row's active flag.
func (s *PromptService) ToggleActive(ctx context.Context, id string, active bool) error {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "ToggleActive",
		trace.WithAttributes(
			attribute.String("prompt.id", id),
			attribute.Bool("active", active),
		),
	)
	defer span.End()

	err := repo.SetPromptActive(ctx, s.DB, id, active)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPromptNotFound
	}
	return err
}

// Render substitutes vars into a prompt's content for previewing.
func (s *PromptService) Render(ctx context.Context, id string, vars map[string]string) (*RenderResult, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "Render",
		trace.WithAttributes(attribute.String("prompt.id", id)),
	)
	defer span.End()

	p, err := repo.GetPrompt(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	res := RenderPrompt(p.Content, vars)
	return &res, nil
}

// Import stores a library prompt: a new family is created, a changed one
// gets a new version, and an identical one is left alone.
func (s *PromptService) Import(ctx context.Context, in PromptInput) (*domain.Prompt, ImportOutcome, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "Import",
		trace.WithAttributes(attribute.String("prompt.family", in.PromptID)),
	)
	defer span.End()

	norm, err := normalizePrompt(in)
	if err != nil {
		return nil, "", err
	}
	if norm.PromptID == "" {
		norm.PromptID = slugify(norm.Name)
	}

	latest, err := repo.LatestPromptVersion(ctx, s.DB, norm.PromptID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		p, err := s.Create(ctx, norm)
		return p, ImportCreated, err
	case err != nil:
		return nil, "", err
	}
	if samePrompt(latest, norm) {
		return latest, ImportUnchanged, nil
	}
	p, err := s.UpdateVersion(ctx, norm.PromptID, norm)
	return p, ImportVersioned, err
}

// RenderPrompt replaces {name} placeholders in content with vars[name].
// Placeholders without a value are kept and reported once each.
func RenderPrompt(content string, vars map[string]string) RenderResult {
	missing := []string{}
	text := placeholderRE.ReplaceAllStringFunc(content, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return tok
	})
	return RenderResult{Text: text, Missing: missing}
}

// ExtractVariables lists the distinct placeholders in content in order of
// first appearance.
func ExtractVariables(content string) []string {
	out := []string{}
	for _, m := range placeholderRE.FindAllStringSubmatch(content, -1) {
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

func normalizePrompt(in PromptInput) (PromptInput, error) {
	in.PromptID = strings.TrimSpace(in.PromptID)
	in.System = strings.TrimSpace(in.System)
	in.Category = strings.TrimSpace(in.Category)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.System == "":
		return in, fmt.Errorf("%w: system is required", ErrInvalidInput)
	case in.Name == "":
		return in, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case strings.TrimSpace(in.Content) == "":
		return in, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if in.Category == "" {
		in.Category = defaultPromptCategory
	}
	if in.Variables == nil {
		in.Variables = ExtractVariables(in.Content)
	}
	return in, nil
}

func newPromptRow(in PromptInput, version int) *domain.Prompt {
	return &domain.Prompt{
		PromptID:    in.PromptID,
		Version:     version,
		System:      in.System,
		Category:    in.Category,
		Name:        in.Name,
		Description: in.Description,
		Content:     in.Content,
		Variables:   domain.StringList(in.Variables),
		IsActive:    true,
	}
}

func samePrompt(p *domain.Prompt, in PromptInput) bool {
	return p.System == in.System &&
		p.Category == in.Category &&
		p.Name == in.Name &&
		p.Description == in.Description &&
		p.Content == in.Content &&
		slices.Equal([]string(p.Variables), in.Variables)
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a display name into a prompt_id ("Setter Hot Lead" →
// "setter_hot_lead").
func slugify(name string) string {
	return strings.Trim(slugRE.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
