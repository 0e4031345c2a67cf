package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/cache"
)

func TestVisitAdvice(t *testing.T) {
	tests := []struct {
		name        string
		tempC       int
		weatherMain string
		windMs      float64
		wantTone    string
	}{
		{"rain always warns", 20, "Rain", 2, "warn"},
		{"drizzle warns", 20, "Drizzle", 2, "warn"},
		{"thunderstorm warns", 20, "Thunderstorm", 2, "warn"},
		{"mild and calm is ok", 22, "Clear", 3, "ok"},
		{"mild lower bound", 15, "Clear", 0, "ok"},
		{"mild upper bound", 27, "Clouds", 0, "ok"},
		{"chilly is soft", 10, "Clear", 2, "soft"},
		{"hot is soft", 31, "Clear", 2, "soft"},
		{"cold is soft", 3, "Clear", 2, "soft"},
		{"windy mild is soft", 20, "Clear", 10, "soft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice := visitAdvice(tt.tempC, tt.weatherMain, tt.windMs)
			if advice.Tone != tt.wantTone {
				t.Errorf("tone: expected %s, got %s (label %q)", tt.wantTone, advice.Tone, advice.Label)
			}
			if advice.Label == "" {
				t.Errorf("expected a non-empty label")
			}
		})
	}
}

func TestBranchesWeatherCachesPerCoordinate(t *testing.T) {
	db := setupTestDB(t)

	// Two branches quantizing to the same coordinate key share a cache entry.
	branches := []model.Branch{
		{Name: "Main Hall", Address: "a", Lat: 32.0771, Lng: 34.7868},
		{Name: "Annex", Address: "b", Lat: 32.0769, Lng: 34.7866},
	}
	if err := db.Create(&branches).Error; err != nil {
		t.Fatalf("failed to seed branches: %v", err)
	}

	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"main":{"temp":21.4,"feels_like":20.9,"humidity":55},"weather":[{"main":"Clear","description":"clear sky"}],"wind":{"speed":3.1}}`))
	}))
	defer upstream.Close()

	svc := &weatherService{
		branchRepo: repository.NewBranchRepository(db),
		cache:      cache.NewMemory(),
		client:     upstream.Client(),
		apiKey:     "test-key",
		baseURL:    upstream.URL,
		ttl:        10 * time.Minute,
	}

	resp, err := svc.BranchesWeather(context.Background())
	if err != nil {
		t.Fatalf("BranchesWeather failed: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.TTLSeconds != 600 {
		t.Errorf("ttlSeconds: expected 600, got %d", resp.TTLSeconds)
	}

	for _, item := range resp.Items {
		if item.Error != "" {
			t.Fatalf("unexpected item error: %s", item.Error)
		}
		if item.TempC != 21 {
			t.Errorf("tempC: expected rounded 21, got %d", item.TempC)
		}
		if item.Advice == nil || item.Advice.Tone != "ok" {
			t.Errorf("expected ok advice for mild clear weather")
		}
		if item.WindMs == nil || *item.WindMs != 3.1 {
			t.Errorf("windMs not carried through")
		}
	}

	// A second sweep inside the TTL is served entirely from cache. The
	// first sweep may fetch concurrently, so only the delta is asserted.
	afterFirst := calls.Load()
	if afterFirst < 1 {
		t.Fatalf("expected at least one upstream call, got %d", afterFirst)
	}
	if _, err := svc.BranchesWeather(context.Background()); err != nil {
		t.Fatalf("second BranchesWeather failed: %v", err)
	}
	if got := calls.Load(); got != afterFirst {
		t.Errorf("second sweep hit upstream: %d calls before, %d after", afterFirst, got)
	}
}

func TestBranchesWeatherDegradesPerBranch(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Create(&model.Branch{Name: "Broken", Address: "x", Lat: 10, Lng: 10}).Error; err != nil {
		t.Fatalf("failed to seed branch: %v", err)
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	svc := &weatherService{
		branchRepo: repository.NewBranchRepository(db),
		cache:      cache.NewMemory(),
		client:     upstream.Client(),
		apiKey:     "test-key",
		baseURL:    upstream.URL,
		ttl:        time.Minute,
	}

	resp, err := svc.BranchesWeather(context.Background())
	if err != nil {
		t.Fatalf("BranchesWeather must not fail on upstream errors: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Error == "" {
		t.Errorf("expected a per-branch error marker")
	}
	if resp.Items[0].Advice != nil {
		t.Errorf("failed branch must not carry advice")
	}
}

func TestBranchesWeatherRequiresAPIKey(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWeatherService(repository.NewBranchRepository(db), cache.NewMemory(), "", time.Minute)

	if _, err := svc.BranchesWeather(context.Background()); err == nil {
		t.Fatal("expected error without API key")
	}
}
