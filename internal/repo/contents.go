package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
)

func contentFilterScope(f filters.ContentFilters) Scope {
	return func(q *gorm.DB) *gorm.DB {
		return q.Scopes(
			eq("status", f.Status),
			eq("priority", f.Priority),
			arrayContains("audiences", f.Audience),
		)
	}
}

// CountContents returns the number of contents matching f.
func CountContents(ctx context.Context, db *gorm.DB, f filters.ContentFilters) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Content{}).
		Scopes(contentFilterScope(f)).
		Count(&total).Error
	return total, err
}

// ListContentsPage returns a page of contents, newest first.
func ListContentsPage(ctx context.Context, db *gorm.DB, f filters.ContentFilters, offset, limit int) ([]domain.Content, error) {
	out := []domain.Content{}
	err := db.WithContext(ctx).
		Scopes(contentFilterScope(f), paginate(offset, limit)).
		Order("created_at DESC").
		Order("id").
		Find(&out).Error
	return out, err
}

// GetContent fetches a content row by id, or ErrNotFound.
func GetContent(ctx context.Context, db *gorm.DB, id string) (*domain.Content, error) {
	var c domain.Content
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContent inserts c, assigning an id when it has none.
func CreateContent(ctx context.Context, db *gorm.DB, c *domain.Content) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	return db.WithContext(ctx).Create(c).Error
}

// UpdateContent applies a column→value map to one content row and touches
// updated_at. It returns ErrNotFound when no row has that id.
func UpdateContent(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	upd := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		upd[k] = v
	}
	upd["updated_at"] = time.Now().UTC()

	res := db.WithContext(ctx).
		Model(&domain.Content{}).
		Where("id = ?", id).
		Updates(upd)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveContent moves a content row to the archived status.
func ArchiveContent(ctx context.Context, db *gorm.DB, id string) error {
	return UpdateContent(ctx, db, id, map[string]any{"status": domain.ContentArchived})
}

// ListContentHooks returns the hooks extracted from a content, newest first.
func ListContentHooks(ctx context.Context, db *gorm.DB, contentID string) ([]domain.Hook, error) {
	out := []domain.Hook{}
	err := db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListContentDistributions returns every distribution of a content, newest
// first.
func ListContentDistributions(ctx context.Context, db *gorm.DB, contentID string) ([]domain.Distribution, error) {
	out := []domain.Distribution{}
	err := db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// CreateHooks inserts hooks in one batch, assigning ids where missing.
func CreateHooks(ctx context.Context, db *gorm.DB, hs []domain.Hook) error {
	if len(hs) == 0 {
		return nil
	}
	for i := range hs {
		if hs[i].ID == "" {
			hs[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(hs, 100).Error
}
