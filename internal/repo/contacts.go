// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the contact queries: the filtered
// overview list, single-contact detail, and the activity attached to a
// contact through its GoHighLevel id.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
)

// contactFilterScope translates ContactFilters into WHERE clauses.
//
// Exclusions keep rows with a NULL segment/status, and the excluded score
// band is inclusive on both ends: with only one bound set, everything on
// that side of the bound is excluded.
func contactFilterScope(f filters.ContactFilters) Scope {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Scopes(eq("segment", f.Segment), eq("investor_status", f.InvestorStatus))
		if f.ScoreMin != nil {
			q = q.Where("score >= ?", *f.ScoreMin)
		}
		if f.ScoreMax != nil {
			q = q.Where("score <= ?", *f.ScoreMax)
		}
		if len(f.ExcludeSegments) > 0 {
			q = q.Where("(segment IS NULL OR segment NOT IN ?)", f.ExcludeSegments)
		}
		if len(f.ExcludeStatuses) > 0 {
			q = q.Where("(investor_status IS NULL OR investor_status NOT IN ?)", f.ExcludeStatuses)
		}
		switch lo, hi := f.ExcludeScoreMin, f.ExcludeScoreMax; {
		case lo != nil && hi != nil:
			q = q.Where("NOT (score >= ? AND score <= ?)", *lo, *hi)
		case lo != nil:
			q = q.Where("score < ?", *lo)
		case hi != nil:
			q = q.Where("score > ?", *hi)
		}
		if f.Search != "" {
			p := containsFold(f.Search)
			q = q.Where(
				`(LOWER(COALESCE(first_name,'') || ' ' || COALESCE(last_name,'')) LIKE ? ESCAPE '\'`+
					` OR LOWER(COALESCE(email,'')) LIKE ? ESCAPE '\'`+
					` OR LOWER(COALESCE(phone,'')) LIKE ? ESCAPE '\')`,
				p, p, p)
		}
		return q
	}
}

// CountContacts returns the number of overview rows matching f.
func CountContacts(ctx context.Context, db *gorm.DB, f filters.ContactFilters) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ContactOverview{}).
		Scopes(contactFilterScope(f)).
		Count(&total).Error
	return total, err
}

// ListContactsPage returns a page of the contact overview ordered by score
// (highest first), then most recent touchpoint with never-touched contacts
// last.
func ListContactsPage(ctx context.Context, db *gorm.DB, f filters.ContactFilters, offset, limit int) ([]domain.ContactOverview, error) {
	out := []domain.ContactOverview{}
	err := db.WithContext(ctx).
		Scopes(contactFilterScope(f), paginate(offset, limit)).
		Order("score DESC").
		Order("last_touchpoint_at DESC NULLS LAST").
		Order("id").
		Find(&out).Error
	return out, err
}

// GetContact fetches a contact by primary key, or ErrNotFound.
func GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.ContactOverview, error) {
	var c domain.ContactOverview
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContactDistributions returns the latest distributions sent to ghlID.
func ListContactDistributions(ctx context.Context, db *gorm.DB, ghlID string, limit int) ([]domain.Distribution, error) {
	out := []domain.Distribution{}
	err := db.WithContext(ctx).
		Where("ghl_contact_id = ?", ghlID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListContactVoiceCalls returns the latest voice calls for ghlID.
func ListContactVoiceCalls(ctx context.Context, db *gorm.DB, ghlID string, limit int) ([]domain.VoiceCall, error) {
	out := []domain.VoiceCall{}
	err := db.WithContext(ctx).
		Where("ghl_id = ?", ghlID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ContactsByGHLIDs returns slim contact projections for the given ids in a
// single query. Unknown ids are simply absent from the result.
func ContactsByGHLIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.ContactRef, error) {
	out := []domain.ContactRef{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Select("ghl_id, email, phone, first_name, last_name").
		Where("ghl_id IN ?", ids).
		Find(&out).Error
	return out, err
}

// CreateContacts inserts contacts in batches (seeding and sync tooling),
// assigning ids where missing.
func CreateContacts(ctx context.Context, db *gorm.DB, cs []domain.Contact) error {
	if len(cs) == 0 {
		return nil
	}
	for i := range cs {
		if cs[i].ID == "" {
			cs[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(cs, 100).Error
}
