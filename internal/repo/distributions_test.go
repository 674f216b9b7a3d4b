package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CachoMX/vhlabs/internal/domain"
)

func seedDistributions(t *testing.T) *gorm.DB {
	t.Helper()
	db := newSchemaDB(t)
	day := func(d, h int) *time.Time {
		v := time.Date(2025, 4, d, h, 0, 0, 0, time.UTC)
		return &v
	}
	rows := []domain.Distribution{
		{ID: "d1", GHLContactID: "g1", Channel: "email", Status: "sent", SentAt: day(1, 9), OpenedAt: day(1, 10), ResponseReceived: true},
		{ID: "d2", GHLContactID: "g2", Channel: "email", Status: "sent", SentAt: day(2, 9)},
		{ID: "d3", GHLContactID: "g1", Channel: "sms", Status: "delivered", SentAt: day(2, 12), ResponseReceived: true},
		{ID: "d4", GHLContactID: "g3", Channel: "sms", Status: "scheduled"},
	}
	if err := CreateDistributions(context.Background(), db, rows); err != nil {
		t.Fatalf("seed: %v", err)
	}
	mustCreate(t, db, &domain.VoiceCall{ID: "v1", GHLID: "g2", Status: "completed", CreatedAt: *day(3, 8)})
	return db
}

func TestListAllDistributionsPage_FiltersAndOrder(t *testing.T) {
	db := seedDistributions(t)
	ctx := context.Background()

	all, err := ListAllDistributionsPage(ctx, db, DistributionQuery{}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("want 5 rows (4 distributions + 1 call), got %d", len(all))
	}
	if all[0].ID != "v1" {
		t.Fatalf("latest sent first, got %s", all[0].ID)
	}

	from := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 2, 23, 59, 59, 0, time.UTC)
	q := DistributionQuery{Channel: "email", From: &from, To: &to}
	page, err := ListAllDistributionsPage(ctx, db, q, 0, 10)
	if err != nil || len(page) != 1 || page[0].ID != "d2" {
		t.Fatalf("filtered: %+v %v", page, err)
	}
	n, err := CountAllDistributions(ctx, db, q)
	if err != nil || n != 1 {
		t.Fatalf("count = %d err=%v", n, err)
	}
}

func TestListDistributionPerformance_SQLiteView(t *testing.T) {
	db := seedDistributions(t)
	rows, err := ListDistributionPerformance(context.Background(), db)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(rows) != 2 || rows[0].Channel != "email" || rows[1].Channel != "sms" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	email := rows[0]
	if email.TotalSent != 2 || email.Opened != 1 || email.Responded != 1 {
		t.Fatalf("email counts: %+v", email)
	}
	if email.OpenRate != 50 || email.ResponseRate != 50 {
		t.Fatalf("email rates: %+v", email)
	}
	// The scheduled sms has no sent_at and is not counted.
	if rows[1].TotalSent != 1 || rows[1].ResponseRate != 100 {
		t.Fatalf("sms row: %+v", rows[1])
	}
}

func TestDistributionsByChannel_SQLiteGroupBy(t *testing.T) {
	db := seedDistributions(t)
	ctx := context.Background()

	got, err := DistributionsByChannel(ctx, db, nil, nil, "", "")
	if err != nil {
		t.Fatalf("by channel: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 channels, got %+v", got)
	}
	// Equal counts tie-break by channel name.
	if got[0] != (domain.ChannelCount{Channel: "email", SentCount: 2}) || got[1] != (domain.ChannelCount{Channel: "sms", SentCount: 1}) {
		t.Fatalf("unexpected: %+v", got)
	}

	only, err := DistributionsByChannel(ctx, db, nil, nil, "", "delivered")
	if err != nil || len(only) != 1 || only[0].Channel != "sms" {
		t.Fatalf("status filter: %+v %v", only, err)
	}
}

func TestDistributionsByChannel_PostgresCallsRPC(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	if !IsPostgres(db) {
		t.Fatal("expected postgres dialector")
	}

	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT channel, sent_count FROM get_distributions_by_channel(")).
		WithArgs(from, nil, "email", nil).
		WillReturnRows(sqlmock.NewRows([]string{"channel", "sent_count"}).AddRow("email", 42))

	got, err := DistributionsByChannel(context.Background(), db, &from, nil, "email", "")
	if err != nil {
		t.Fatalf("rpc: %v", err)
	}
	if len(got) != 1 || got[0].SentCount != 42 {
		t.Fatalf("unexpected: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEngagementRowsAndCountSince(t *testing.T) {
	db := seedDistributions(t)
	ctx := context.Background()

	rows, err := ListEngagementRows(ctx, db, nil, nil)
	if err != nil || len(rows) != 3 {
		t.Fatalf("rows: n=%d err=%v", len(rows), err)
	}
	to := time.Date(2025, 4, 1, 23, 0, 0, 0, time.UTC)
	rows, err = ListEngagementRows(ctx, db, nil, &to)
	if err != nil || len(rows) != 1 || !rows[0].ResponseReceived {
		t.Fatalf("bounded rows: %+v %v", rows, err)
	}

	n, err := CountDistributionsSince(ctx, db, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	if err != nil || n != 2 {
		t.Fatalf("since = %d err=%v", n, err)
	}
}

func TestDistributionsByIDs(t *testing.T) {
	db := seedDistributions(t)
	ctx := context.Background()

	got, err := DistributionsByIDs(ctx, db, []string{"d3", "d1", "missing"})
	if err != nil {
		t.Fatalf("DistributionsByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}
	if none, err := DistributionsByIDs(ctx, db, nil); err != nil || len(none) != 0 {
		t.Fatalf("empty ids: %v %v", none, err)
	}
}
