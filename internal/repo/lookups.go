package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CachoMX/vhlabs/internal/domain"
)

// ListSegments returns every segment ordered by display name.
func ListSegments(ctx context.Context, db *gorm.DB) ([]domain.Segment, error) {
	out := []domain.Segment{}
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// ListInvestorStatuses returns every investor status in pipeline order.
func ListInvestorStatuses(ctx context.Context, db *gorm.DB) ([]domain.InvestorStatus, error) {
	out := []domain.InvestorStatus{}
	err := db.WithContext(ctx).Order("priority_level ASC").Order("name ASC").Find(&out).Error
	return out, err
}

// UpsertSegments inserts segments whose slug is not yet present.
func UpsertSegments(ctx context.Context, db *gorm.DB, rows []domain.Segment) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&rows).Error
}

// UpsertInvestorStatuses inserts statuses whose slug is not yet present.
func UpsertInvestorStatuses(ctx context.Context, db *gorm.DB, rows []domain.InvestorStatus) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&rows).Error
}
