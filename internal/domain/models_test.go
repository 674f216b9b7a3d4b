package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Segment{}).TableName():                 "segments",
		(InvestorStatus{}).TableName():          "investor_statuses",
		(Contact{}).TableName():                 "contacts_sync",
		(ContactOverview{}).TableName():         "v_contact_overview",
		(VoiceCall{}).TableName():               "voice_calls",
		(Content{}).TableName():                 "contents",
		(Hook{}).TableName():                    "hooks",
		(Distribution{}).TableName():            "distributions",
		(AllDistribution{}).TableName():         "v_all_distributions",
		(DistributionPerformance{}).TableName(): "v_distribution_performance",
		(Prompt{}).TableName():                  "prompts",
		(AnalyticsEvent{}).TableName():          "analytics_events",
		(WorkflowLog{}).TableName():             "workflow_logs",
		(Idempotency{}).TableName():             "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_TablesAndIndexes(t *testing.T) {
	db := newTestDB(t)
	models := []any{
		&Segment{}, &InvestorStatus{}, &Contact{}, &VoiceCall{}, &Content{}, &Hook{},
		&Distribution{}, &Prompt{}, &AnalyticsEvent{}, &WorkflowLog{}, &Idempotency{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, mdl := range models {
		if !m.HasTable(mdl) {
			t.Fatalf("expected table for %T", mdl)
		}
	}
	if !m.HasIndex(&Prompt{}, "ux_prompt_version") {
		t.Fatalf("expected ux_prompt_version on prompts")
	}
	if !m.HasIndex(&Idempotency{}, "ux_idem_user_scope_key") {
		t.Fatalf("expected ux_idem_user_scope_key on idempotency")
	}

	// (prompt_id, version) is unique.
	p := Prompt{ID: "p1", PromptID: "setter", Version: 1, System: "system1", Category: "setter", Name: "n", Content: "c"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("insert prompt: %v", err)
	}
	dup := p
	dup.ID = "p2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation on (prompt_id, version)")
	}
}

func TestStringList_RoundTripThroughSQLite(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Content{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	in := Content{ID: "c1", RawText: "x", SourceType: "youtube", Audiences: StringList{"investors", "has a, comma"}}
	if err := db.Create(&in).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var raw string
	if err := db.Raw("SELECT audiences FROM contents WHERE id = ?", "c1").Row().Scan(&raw); err != nil {
		t.Fatalf("raw scan: %v", err)
	}
	if raw != `{"investors","has a, comma"}` {
		t.Fatalf("stored literal = %q", raw)
	}

	var out Content
	if err := db.First(&out, "id = ?", "c1").Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if len(out.Audiences) != 2 || out.Audiences[1] != "has a, comma" {
		t.Fatalf("audiences = %#v", out.Audiences)
	}
}

func TestStringList_JSON(t *testing.T) {
	var nilList StringList
	b, _ := json.Marshal(nilList)
	if string(b) != "[]" {
		t.Fatalf("nil list json = %s", b)
	}
	var l StringList
	if err := json.Unmarshal([]byte(`["a","b"]`), &l); err != nil || len(l) != 2 {
		t.Fatalf("unmarshal: %v %#v", err, l)
	}
	if v, _ := nilList.Value(); v != "{}" {
		t.Fatalf("nil Value() = %v", v)
	}
}

func TestJSON_ScanValueAndDecode(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&AnalyticsEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	ev := AnalyticsEvent{ID: "e1", EventType: "content_parsed", EventData: JSON(`{"hooks":3}`), CreatedAt: time.Now().UTC()}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	empty := AnalyticsEvent{ID: "e2", EventType: "noop", CreatedAt: time.Now().UTC()}
	if err := db.Create(&empty).Error; err != nil {
		t.Fatalf("create empty: %v", err)
	}

	var got AnalyticsEvent
	if err := db.First(&got, "id = ?", "e1").Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	var data struct{ Hooks int }
	if err := got.EventData.Decode(&data); err != nil || data.Hooks != 3 {
		t.Fatalf("decode: %v %+v", err, data)
	}

	var gotEmpty AnalyticsEvent
	if err := db.First(&gotEmpty, "id = ?", "e2").Error; err != nil {
		t.Fatalf("first empty: %v", err)
	}
	b, _ := json.Marshal(gotEmpty.EventData)
	if string(b) != "null" {
		t.Fatalf("empty json = %s", b)
	}

	var j JSON
	if err := j.Scan(42); err == nil {
		t.Fatalf("expected scan error for int")
	}
}

func TestContact_FullName(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"", "Lovelace", "Lovelace"},
		{"Ada", "", "Ada"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := (Contact{FirstName: tc.first, LastName: tc.last}).FullName(); got != tc.want {
			t.Errorf("FullName(%q,%q) = %q; want %q", tc.first, tc.last, got, tc.want)
		}
	}
}

func TestEnumValidators(t *testing.T) {
	for _, s := range []string{"pending", "processing", "ready", "distributed", "archived"} {
		if !ValidContentStatus(s) {
			t.Errorf("status %q should be valid", s)
		}
	}
	if ValidContentStatus("deleted") {
		t.Errorf("unknown status accepted")
	}
	if !ValidPriority("high") || ValidPriority("urgent") {
		t.Errorf("priority validation wrong")
	}
	if !ValidSendChannel("sms") || ValidSendChannel("voice") {
		t.Errorf("channel validation wrong")
	}
}
