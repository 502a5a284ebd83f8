package ratesource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/buxback/gild/item"
)

func TestDefaultTable(t *testing.T) {
	d := Default()
	if d.Catalog != 0.30 || d.Classic != 0.05 || d.Gamepass != 0.05 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if !d.valid() {
		t.Fatal("default table must be valid")
	}
}

func TestRate_BundleUsesCatalog(t *testing.T) {
	tbl := Table{Catalog: 0.3, Classic: 0.05, Gamepass: 0.1}
	tests := []struct {
		cat  item.Category
		want float64
	}{
		{item.CategoryCatalog, 0.3},
		{item.CategoryBundle, 0.3},
		{item.CategoryClassic, 0.05},
		{item.CategoryGamepass, 0.1},
	}
	for _, tt := range tests {
		if got := tbl.Rate(tt.cat); got != tt.want {
			t.Errorf("Rate(%s): got %v, want %v", tt.cat, got, tt.want)
		}
	}
}

func TestNew_ServesDefaultWithoutURL(t *testing.T) {
	s, err := New(Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	snap := s.Current()
	if snap.Origin != OriginDefault {
		t.Fatalf("origin: got %s, want default", snap.Origin)
	}
	if snap.Table != Default() {
		t.Fatalf("table: got %+v", snap.Table)
	}
}

func TestRefresh_SwapsOnValidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rates": map[string]float64{"catalog": 0.25, "classic": 0.04, "gamepass": 0.06},
		})
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := s.Current()
	if snap.Origin != OriginFetched {
		t.Fatalf("origin: got %s, want fetched", snap.Origin)
	}
	if snap.Table.Catalog != 0.25 {
		t.Fatalf("catalog rate: got %v, want 0.25", snap.Table.Catalog)
	}
	if snap.FetchedAt.IsZero() {
		t.Fatal("fetched_at not recorded")
	}
}

func TestRefresh_NoRatesKeepsCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if snap := s.Current(); snap.Origin != OriginDefault {
		t.Fatalf("origin changed on empty response: %s", snap.Origin)
	}
}

func TestRefresh_InvalidTableIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rates": map[string]float64{"catalog": 1.5, "classic": 0.04, "gamepass": 0.06},
		})
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if snap := s.Current(); snap.Table != Default() {
		t.Fatalf("invalid table was accepted: %+v", snap.Table)
	}
}

func TestRefresh_HTTPErrorKeepsCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error on http 500")
	}
	if snap := s.Current(); snap.Table != Default() {
		t.Fatalf("table changed on fetch failure: %+v", snap.Table)
	}
}

func TestStore_Roundtrip(t *testing.T) {
	st, err := OpenStore(filepath.Join(t.TempDir(), "rates.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()

	tbl, at, err := st.LoadTable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tbl != nil || !at.IsZero() {
		t.Fatal("fresh store should have no cached table")
	}

	want := Table{Catalog: 0.22, Classic: 0.03, Gamepass: 0.07}
	fetchedAt := time.Now().Truncate(time.Millisecond)
	if err := st.SaveTable(ctx, want, fetchedAt); err != nil {
		t.Fatal(err)
	}

	tbl, at, err = st.LoadTable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tbl == nil || *tbl != want {
		t.Fatalf("loaded table: got %+v, want %+v", tbl, want)
	}
	if !at.Equal(fetchedAt) {
		t.Fatalf("fetched_at: got %v, want %v", at, fetchedAt)
	}

	// Second save overwrites the single row.
	want2 := Table{Catalog: 0.5, Classic: 0.5, Gamepass: 0.5}
	if err := st.SaveTable(ctx, want2, fetchedAt.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	tbl, _, err = st.LoadTable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if *tbl != want2 {
		t.Fatalf("after upsert: got %+v, want %+v", tbl, want2)
	}
}

func TestStore_InstallTimeSticks(t *testing.T) {
	st, err := OpenStore(filepath.Join(t.TempDir(), "rates.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	first := time.UnixMilli(1_700_000_000_000)
	got, err := st.EnsureInstalledAt(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(first) {
		t.Fatalf("first install time: got %v, want %v", got, first)
	}

	// A later call must not move the timestamp.
	got, err = st.EnsureInstalledAt(ctx, first.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(first) {
		t.Fatalf("install time moved: got %v, want %v", got, first)
	}
}

func TestCachedTableSurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "rates.db")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rates": map[string]float64{"catalog": 0.25, "classic": 0.04, "gamepass": 0.06},
		})
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, DBPath: dbPath}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Restart without a URL: the cached table should be in effect.
	s2, err := New(Config{DBPath: dbPath}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	snap := s2.Current()
	if snap.Origin != OriginCached {
		t.Fatalf("origin after restart: got %s, want cached", snap.Origin)
	}
	if snap.Table.Catalog != 0.25 {
		t.Fatalf("cached catalog rate: got %v", snap.Table.Catalog)
	}
}

func TestRouter_ServesCurrentSnapshot(t *testing.T) {
	s, err := New(Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/rates")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Origin != OriginDefault || snap.Table != Default() {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
