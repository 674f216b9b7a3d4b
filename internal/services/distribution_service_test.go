package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/notify"
)

var sendNow = time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC)

func newDistributionService(t *testing.T) *DistributionService {
	t.Helper()
	db := newTestDB(t)
	seed(t, db,
		&domain.Content{ID: "k1", RawText: "x", SourceType: "upload", Status: "ready", Priority: "high"},
		&domain.Contact{ID: "c1", GHLID: "g1", FirstName: "José", LastName: "Núñez", Email: "jose@example.com", Phone: "+15550101"},
		&domain.Contact{ID: "c2", GHLID: "g2", FirstName: "Grace", LastName: "Hopper", Email: "grace@navy.mil"},
	)
	return &DistributionService{
		DB:             db,
		Cache:          newTestCache(),
		TTL:            time.Minute,
		IdempotencyTTL: time.Hour,
		now:            fixedClock(sendNow),
	}
}

func TestDistributionService_CreateValidation(t *testing.T) {
	svc := newDistributionService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  SendRequest
		want error
	}{
		{"no contacts", SendRequest{ContentID: "k1", Channel: "email"}, ErrNoContacts},
		{"blank contacts", SendRequest{ContentID: "k1", Channel: "email", GHLContactIDs: []string{" ", ""}}, ErrNoContacts},
		{"voice is not sendable", SendRequest{ContentID: "k1", Channel: "voice", GHLContactIDs: []string{"g1"}}, ErrInvalidChannel},
		{"missing content id", SendRequest{Channel: "sms", GHLContactIDs: []string{"g1"}}, ErrInvalidInput},
		{"unknown content", SendRequest{ContentID: "nope", Channel: "sms", GHLContactIDs: []string{"g1"}}, ErrContentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.req, IdempotencyRef{}); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDistributionService_CreateImmediate(t *testing.T) {
	svc := newDistributionService(t)

	res, err := svc.Create(context.Background(), SendRequest{
		ContentID: "k1", Channel: " Email ", GHLContactIDs: []string{"g1", "g2", "g1"},
	}, IdempotencyRef{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Replayed || len(res.Distributions) != 2 {
		t.Fatalf("want 2 fresh rows (duplicates dropped), got %+v", res)
	}
	for _, d := range res.Distributions {
		if d.Status != domain.DistSent || d.SentAt == nil || !d.SentAt.Equal(sendNow) {
			t.Fatalf("immediate send should be sent now: %+v", d)
		}
		if d.ScheduledFor == nil || !d.ScheduledFor.Equal(sendNow) {
			t.Fatalf("scheduled_for should default to now: %+v", d.ScheduledFor)
		}
		if d.Channel != "email" || d.ContentID == nil || *d.ContentID != "k1" {
			t.Fatalf("unexpected row: %+v", d)
		}
	}
}

func TestDistributionService_CreateScheduled(t *testing.T) {
	svc := newDistributionService(t)
	at := sendNow.Add(48 * time.Hour)

	res, err := svc.Create(context.Background(), SendRequest{
		ContentID: "k1", Channel: "sms", GHLContactIDs: []string{"g2"}, ScheduledFor: &at,
	}, IdempotencyRef{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d := res.Distributions[0]
	if d.Status != domain.DistScheduled || d.SentAt != nil || !d.ScheduledFor.Equal(at) {
		t.Fatalf("scheduled send stored wrong: %+v", d)
	}
}

func TestDistributionService_CreateIdempotent(t *testing.T) {
	svc := newDistributionService(t)
	ctx := context.Background()
	req := SendRequest{ContentID: "k1", Channel: "email", GHLContactIDs: []string{"g1", "g2"}}
	idem := IdempotencyRef{UserID: "u1", Scope: "POST /distributions", Key: "send-1"}

	first, err := svc.Create(ctx, req, idem)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	again, err := svc.Create(ctx, req, idem)
	if err != nil {
		t.Fatalf("replayed Create: %v", err)
	}
	if !again.Replayed || len(again.Distributions) != 2 {
		t.Fatalf("want replay of 2 rows, got %+v", again)
	}
	want := map[string]bool{first.Distributions[0].ID: true, first.Distributions[1].ID: true}
	for _, d := range again.Distributions {
		if !want[d.ID] {
			t.Fatalf("replay returned a new row %s", d.ID)
		}
	}

	var n int64
	svc.DB.Model(&domain.Distribution{}).Count(&n)
	if n != 2 {
		t.Fatalf("replay must not insert rows, have %d", n)
	}

	ok, err := svc.HasResult(ctx, "u1", idem.Scope, "send-1", sendNow)
	if err != nil || !ok {
		t.Fatalf("HasResult = %v, %v", ok, err)
	}
	if ok, _ := svc.HasResult(ctx, "u2", idem.Scope, "send-1", sendNow); ok {
		t.Fatal("keys are per user")
	}
}

func TestDistributionService_CreateNotifiesWebhook(t *testing.T) {
	var calls atomic.Int32
	payloads := make(chan notify.DistributionsCreated, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var p notify.DistributionsCreated
		_ = json.NewDecoder(r.Body).Decode(&p)
		payloads <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newDistributionService(t)
	svc.Webhook = notify.NewWebhook(srv.URL, time.Second)

	res, err := svc.Create(context.Background(), SendRequest{
		ContentID: "k1", Channel: "sms", GHLContactIDs: []string{"g1"},
	}, IdempotencyRef{UserID: "u9"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("webhook calls = %d", calls.Load())
	}
	got := <-payloads
	if got.Event != notify.EventDistributionsCreated || got.RequestedBy != "u9" ||
		len(got.DistributionIDs) != 1 || got.DistributionIDs[0] != res.Distributions[0].ID ||
		got.ScheduledFor != nil {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestDistributionService_WebhookFailureDoesNotFailSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow inactive", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := newDistributionService(t)
	svc.Webhook = notify.NewWebhook(srv.URL, time.Second)

	res, err := svc.Create(context.Background(), SendRequest{
		ContentID: "k1", Channel: "email", GHLContactIDs: []string{"g1"},
	}, IdempotencyRef{})
	if err != nil || len(res.Distributions) != 1 {
		t.Fatalf("send should succeed despite webhook error: %v", err)
	}
}

func TestDistributionService_ListPageSearch(t *testing.T) {
	svc := newDistributionService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, SendRequest{ContentID: "k1", Channel: "email", GHLContactIDs: []string{"g1", "g2", "g404"}}, IdempotencyRef{}); err != nil {
		t.Fatalf("seed send: %v", err)
	}

	items, total, err := svc.ListPage(ctx, filters.DistributionFilters{}, 1, 10)
	if err != nil || total != 3 || len(items) != 3 {
		t.Fatalf("ListPage: total=%d len=%d err=%v", total, len(items), err)
	}
	var orphan int
	for _, it := range items {
		if it.Contact == nil {
			orphan++
		}
	}
	if orphan != 1 {
		t.Fatalf("unknown contact should have nil Contact, got %d orphans", orphan)
	}

	items, total, err = svc.ListPage(ctx, filters.DistributionFilters{Search: "jose nunez"}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].GHLID != "g1" {
		t.Fatalf("search should match accent-insensitively and report the filtered total: %d %+v", total, items)
	}

	if _, _, err := svc.ListPage(ctx, filters.DistributionFilters{DateFrom: "02/06/2025"}, 1, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad date: want ErrInvalidInput, got %v", err)
	}
}

func TestDistributionService_ChartByChannelCached(t *testing.T) {
	svc := newDistributionService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, SendRequest{ContentID: "k1", Channel: "sms", GHLContactIDs: []string{"g1", "g2"}}, IdempotencyRef{}); err != nil {
		t.Fatalf("seed send: %v", err)
	}

	f := ChannelChartFilters{DashboardFilters: filters.DashboardFilters{Preset: filters.PresetToday}}
	counts, err := svc.ChartByChannel(ctx, f)
	if err != nil {
		t.Fatalf("ChartByChannel: %v", err)
	}
	if len(counts) != 1 || counts[0].Channel != "sms" || counts[0].SentCount != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	seed(t, svc.DB, &domain.Distribution{ID: "late", GHLContactID: "g1", Channel: "email", Status: "sent", SentAt: ptr(sendNow)})
	cached, _ := svc.ChartByChannel(ctx, f)
	if len(cached) != 1 {
		t.Fatalf("chart should be served from cache, got %+v", cached)
	}

	if _, err := svc.ChartByChannel(ctx, ChannelChartFilters{DashboardFilters: filters.DashboardFilters{StartDate: "soon"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad date: want ErrInvalidInput, got %v", err)
	}
}

func TestUniqueIDs(t *testing.T) {
	got := uniqueIDs([]string{" a", "b", "a", "", "c ", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("uniqueIDs = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueIDs = %v; want %v", got, want)
		}
	}
}
