package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
)

func promptFilterScope(f filters.PromptFilters) Scope {
	return func(q *gorm.DB) *gorm.DB {
		return q.Scopes(eq("system", f.System), eq("category", f.Category))
	}
}

// CountPrompts counts prompt rows (every version) matching f.
func CountPrompts(ctx context.Context, db *gorm.DB, f filters.PromptFilters) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Prompt{}).
		Scopes(promptFilterScope(f)).
		Count(&total).Error
	return total, err
}

// ListPromptsPage returns a page of prompt rows, most recently updated first.
func ListPromptsPage(ctx context.Context, db *gorm.DB, f filters.PromptFilters, offset, limit int) ([]domain.Prompt, error) {
	out := []domain.Prompt{}
	err := db.WithContext(ctx).
		Scopes(promptFilterScope(f), paginate(offset, limit)).
		Order("updated_at DESC").
		Order("id").
		Find(&out).Error
	return out, err
}

// GetPrompt fetches one prompt version by row id, or ErrNotFound.
func GetPrompt(ctx context.Context, db *gorm.DB, id string) (*domain.Prompt, error) {
	var p domain.Prompt
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPromptVersions returns every version of a prompt family, newest
// version first.
func ListPromptVersions(ctx context.Context, db *gorm.DB, promptID string) ([]domain.Prompt, error) {
	out := []domain.Prompt{}
	err := db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("version DESC").
		Find(&out).Error
	return out, err
}

// CreatePrompt inserts p, assigning an id when it has none.
func CreatePrompt(ctx context.Context, db *gorm.DB, p *domain.Prompt) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return db.WithContext(ctx).Create(p).Error
}

// LatestPromptVersion returns the highest version row of a family, or
// ErrNotFound when the family does not exist.
func LatestPromptVersion(ctx context.Context, db *gorm.DB, promptID string) (*domain.Prompt, error) {
	var p domain.Prompt
	err := db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("version DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeactivatePromptVersions clears is_active on every row of a family.
func DeactivatePromptVersions(ctx context.Context, db *gorm.DB, promptID string) error {
	return db.WithContext(ctx).
		Model(&domain.Prompt{}).
		Where("prompt_id = ? AND is_active = ?", promptID, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

// SetPromptActive sets is_active on a single row, or returns ErrNotFound.
func SetPromptActive(ctx context.Context, db *gorm.DB, id string, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Prompt{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
