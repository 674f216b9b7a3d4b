// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
)

// tableStats returns the row count of model under scope plus the greatest
// updated_at, or a nil time when there are no rows.
func tableStats(ctx context.Context, db *gorm.DB, model any, scope Scope) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(model).Scopes(scope)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() which comes back as TEXT on SQLite.
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(model).Scopes(scope).
		Select("updated_at").Order("updated_at DESC").Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// PromptsStats returns the count and latest updated_at of prompts matching f.
func PromptsStats(ctx context.Context, db *gorm.DB, f filters.PromptFilters) (int64, *time.Time, error) {
	return tableStats(ctx, db, &domain.Prompt{}, promptFilterScope(f))
}

// ContentsStats returns the count and latest updated_at of contents matching f.
func ContentsStats(ctx context.Context, db *gorm.DB, f filters.ContentFilters) (int64, *time.Time, error) {
	return tableStats(ctx, db, &domain.Content{}, contentFilterScope(f))
}
