package repo

import (
	"context"
	"reflect"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
)

func seedContacts(t *testing.T) *gorm.DB {
	t.Helper()
	db := newSchemaDB(t)
	mustCreate(t, db, &domain.Segment{Slug: "active_investor", Name: "Active Investor"})
	mustCreate(t, db, &domain.InvestorStatus{Slug: "hot", Name: "Hot", PriorityLevel: 1})

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	cs := []domain.Contact{
		{ID: "c1", GHLID: "g1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "5551112222",
			Segment: ptr("active_investor"), InvestorStatus: ptr("hot"), Score: 90, LastTouchpointAt: &t1},
		{ID: "c2", GHLID: "g2", FirstName: "Grace", LastName: "Hopper", Email: "grace@navy.mil",
			Segment: ptr("passive"), Score: 90, LastTouchpointAt: &t2},
		{ID: "c3", GHLID: "g3", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
			Score: 90},
		{ID: "c4", GHLID: "g4", FirstName: "Linus", Email: "linus_t@example.com",
			InvestorStatus: ptr("cold"), Score: 40, LastTouchpointAt: &t2},
	}
	if err := CreateContacts(context.Background(), db, cs); err != nil {
		t.Fatalf("seed contacts: %v", err)
	}
	return db
}

func contactIDs(rows []domain.ContactOverview) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestListContactsPage_OrderScoreThenTouchpointNullsLast(t *testing.T) {
	db := seedContacts(t)
	rows, err := ListContactsPage(context.Background(), db, filters.ContactFilters{}, 0, 10)
	if err != nil {
		t.Fatalf("ListContactsPage: %v", err)
	}
	want := []string{"c2", "c1", "c3", "c4"}
	if got := contactIDs(rows); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v; want %v", got, want)
	}
	if rows[1].SegmentName == nil || *rows[1].SegmentName != "Active Investor" {
		t.Fatalf("segment name not joined: %+v", rows[1])
	}
	if rows[1].InvestorStatusName == nil || *rows[1].InvestorStatusName != "Hot" {
		t.Fatalf("status name not joined: %+v", rows[1])
	}
}

func TestContactFilters(t *testing.T) {
	db := seedContacts(t)
	ctx := context.Background()

	cases := []struct {
		name string
		f    filters.ContactFilters
		want []string
	}{
		{"segment", filters.ContactFilters{Segment: "active_investor"}, []string{"c1"}},
		{"status", filters.ContactFilters{InvestorStatus: "cold"}, []string{"c4"}},
		{"score range", filters.ContactFilters{ScoreMin: ptr(50), ScoreMax: ptr(100)}, []string{"c2", "c1", "c3"}},
		{"exclude segments keeps nulls", filters.ContactFilters{ExcludeSegments: []string{"passive"}}, []string{"c1", "c3", "c4"}},
		{"exclude statuses keeps nulls", filters.ContactFilters{ExcludeStatuses: []string{"hot", "cold"}}, []string{"c2", "c3"}},
		{"exclude score band", filters.ContactFilters{ExcludeScoreMin: ptr(80), ExcludeScoreMax: ptr(95)}, []string{"c4"}},
		{"exclude above min", filters.ContactFilters{ExcludeScoreMin: ptr(50)}, []string{"c4"}},
		{"exclude below max", filters.ContactFilters{ExcludeScoreMax: ptr(50)}, []string{"c2", "c1", "c3"}},
		{"search full name", filters.ContactFilters{Search: "ADA LOVE"}, []string{"c1"}},
		{"search email", filters.ContactFilters{Search: "navy"}, []string{"c2"}},
		{"search phone", filters.ContactFilters{Search: "111"}, []string{"c1"}},
		{"search underscore is literal", filters.ContactFilters{Search: "s_t"}, []string{"c4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := ListContactsPage(ctx, db, tc.f, 0, 50)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got := contactIDs(rows); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ids = %v; want %v", got, tc.want)
			}
			n, err := CountContacts(ctx, db, tc.f)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != int64(len(tc.want)) {
				t.Fatalf("count = %d; want %d", n, len(tc.want))
			}
		})
	}
}

func TestListContactsPage_Paging(t *testing.T) {
	db := seedContacts(t)
	rows, err := ListContactsPage(context.Background(), db, filters.ContactFilters{}, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := contactIDs(rows); !reflect.DeepEqual(got, []string{"c3", "c4"}) {
		t.Fatalf("page 2 = %v", got)
	}
}

func TestGetContact_AndActivity(t *testing.T) {
	db := seedContacts(t)
	ctx := context.Background()

	if _, err := GetContact(ctx, db, "nope"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	c, err := GetContact(ctx, db, "c1")
	if err != nil || c.GHLID != "g1" {
		t.Fatalf("GetContact: %+v %v", c, err)
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		mustCreate(t, db, &domain.Distribution{
			ID: "d" + string(rune('a'+i)), GHLContactID: "g1", Channel: "email", Status: "sent",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	mustCreate(t, db, &domain.VoiceCall{ID: "v1", GHLID: "g1", CreatedAt: base})
	mustCreate(t, db, &domain.VoiceCall{ID: "v2", GHLID: "g2", CreatedAt: base})

	ds, err := ListContactDistributions(ctx, db, "g1", 20)
	if err != nil || len(ds) != 20 {
		t.Fatalf("distributions: n=%d err=%v", len(ds), err)
	}
	if ds[0].ID != "dy" {
		t.Fatalf("expected newest first, got %s", ds[0].ID)
	}
	vc, err := ListContactVoiceCalls(ctx, db, "g1", 20)
	if err != nil || len(vc) != 1 || vc[0].ID != "v1" {
		t.Fatalf("voice calls: %+v %v", vc, err)
	}
}

func TestContactsByGHLIDs(t *testing.T) {
	db := seedContacts(t)
	ctx := context.Background()

	refs, err := ContactsByGHLIDs(ctx, db, []string{"g1", "g4", "missing"})
	if err != nil {
		t.Fatalf("ContactsByGHLIDs: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("want 2 refs, got %+v", refs)
	}
	byID := map[string]domain.ContactRef{}
	for _, r := range refs {
		byID[r.GHLID] = r
	}
	if byID["g1"].Email != "ada@example.com" || byID["g4"].FirstName != "Linus" {
		t.Fatalf("unexpected refs: %+v", byID)
	}

	empty, err := ContactsByGHLIDs(ctx, db, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty ids: %+v %v", empty, err)
	}
}
