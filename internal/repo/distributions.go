package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
)

// DistributionQuery narrows v_all_distributions. Bounds apply to sent_at and
// are inclusive.
type DistributionQuery struct {
	Channel string
	From    *time.Time
	To      *time.Time
}

func (q DistributionQuery) scope() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(eq("channel", q.Channel), between("sent_at", q.From, q.To))
	}
}

// CountAllDistributions counts unified distribution rows matching q.
func CountAllDistributions(ctx context.Context, db *gorm.DB, q DistributionQuery) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AllDistribution{}).
		Scopes(q.scope()).
		Count(&total).Error
	return total, err
}

// ListAllDistributionsPage returns a page of unified distributions, most
// recently sent first. A non-positive limit returns every match.
func ListAllDistributionsPage(ctx context.Context, db *gorm.DB, q DistributionQuery, offset, limit int) ([]domain.AllDistribution, error) {
	out := []domain.AllDistribution{}
	err := db.WithContext(ctx).
		Scopes(q.scope(), paginate(offset, limit)).
		Order("sent_at DESC").
		Order("id").
		Find(&out).Error
	return out, err
}

// CreateDistributions inserts rows in one batch, assigning ids where
// missing.
func CreateDistributions(ctx context.Context, db *gorm.DB, rows []domain.Distribution) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// ListDistributionPerformance returns v_distribution_performance ordered by
// channel.
func ListDistributionPerformance(ctx context.Context, db *gorm.DB) ([]domain.DistributionPerformance, error) {
	out := []domain.DistributionPerformance{}
	err := db.WithContext(ctx).
		Order("channel ASC").
		Order("message_type ASC").
		Find(&out).Error
	return out, err
}

// DistributionsByChannel aggregates sent distributions per channel. On
// Postgres it calls the get_distributions_by_channel function, which avoids
// the API row cap; elsewhere it runs the equivalent GROUP BY. Empty filter
// values are passed as NULL (no restriction).
func DistributionsByChannel(ctx context.Context, db *gorm.DB, from, to *time.Time, channel, status string) ([]domain.ChannelCount, error) {
	out := []domain.ChannelCount{}
	db = db.WithContext(ctx)

	if IsPostgres(db) {
		err := db.Raw(
			"SELECT channel, sent_count FROM get_distributions_by_channel(?, ?, ?, ?)",
			timeArg(from), timeArg(to), nullable(channel), nullable(status),
		).Scan(&out).Error
		return out, err
	}

	err := db.Model(&domain.Distribution{}).
		Select("channel, COUNT(*) AS sent_count").
		Where("sent_at IS NOT NULL").
		Scopes(between("sent_at", from, to), eq("channel", channel), eq("status", status)).
		Group("channel").
		Order("sent_count DESC").
		Order("channel").
		Scan(&out).Error
	return out, err
}

// EngagementRow is the projection used to build engagement trends.
type EngagementRow struct {
	SentAt           time.Time
	ResponseReceived bool
}

// ListEngagementRows returns sent_at/response pairs of sent distributions in
// the inclusive range.
func ListEngagementRows(ctx context.Context, db *gorm.DB, from, to *time.Time) ([]EngagementRow, error) {
	out := []EngagementRow{}
	err := db.WithContext(ctx).
		Model(&domain.Distribution{}).
		Select("sent_at, response_received").
		Where("sent_at IS NOT NULL").
		Scopes(between("sent_at", from, to)).
		Scan(&out).Error
	return out, err
}

// CountDistributionsSince counts distributions sent at or after t.
func CountDistributionsSince(ctx context.Context, db *gorm.DB, t time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Distribution{}).
		Where("sent_at >= ?", t).
		Count(&n).Error
	return n, err
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DistributionsByIDs loads distributions by id, oldest first.
func DistributionsByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Distribution, error) {
	out := []domain.Distribution{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Order("id").
		Find(&out).Error
	return out, err
}
