package stats

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryStreakBookkeeping(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	r, err := svc.RecordResult(ctx, "p1", true, 0, "Limping Liam")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if r.DailyWins != 1 || r.DailyWinStreak != 1 || r.MaxDailyWinStreak != 1 {
		t.Fatalf("unexpected after first win: %+v", r)
	}

	r, _ = svc.RecordResult(ctx, "p1", true, 0, "Limping Liam")
	if r.DailyWins != 2 || r.DailyWinStreak != 2 || r.MaxDailyWinStreak != 2 {
		t.Fatalf("unexpected after second win: %+v", r)
	}

	r, _ = svc.RecordResult(ctx, "p1", false, 7, "Harrowing Hayden")
	if r.DailyLosses != 1 {
		t.Fatalf("expected one loss, got %+v", r)
	}
	if r.DailyWinStreak != 0 {
		t.Fatalf("loss should reset streak, got %d", r.DailyWinStreak)
	}
	if r.MaxDailyWinStreak != 2 {
		t.Fatalf("max streak should survive losses, got %d", r.MaxDailyWinStreak)
	}
	if r.PlayerWon || r.BotName != "Harrowing Hayden" || r.LostBy != 7 {
		t.Fatalf("last-game fields wrong: %+v", r)
	}
}

func TestMemoryResultsResetAcrossDays(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return now }
	if _, err := svc.RecordResult(ctx, "p1", true, 0, "Chaotic Kate"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	now = now.Add(2 * time.Hour) // past midnight UTC
	r, err := svc.Daily(ctx, "p1")
	if err != nil {
		t.Fatalf("daily failed: %v", err)
	}
	if r.DailyWins != 0 || r.DailyWinStreak != 0 {
		t.Fatalf("expected a fresh day, got %+v", r)
	}
}

func TestMemoryResultsPerPlayer(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	svc.RecordResult(ctx, "p1", true, 0, "Limping Liam")
	r, err := svc.Daily(ctx, "p2")
	if err != nil {
		t.Fatalf("daily failed: %v", err)
	}
	if r.DailyWins != 0 {
		t.Fatalf("p2 should have no wins, got %+v", r)
	}
}

func TestSQLiteServiceRoundTrip(t *testing.T) {
	svc, err := NewSQLiteService(":memory:")
	if err != nil {
		t.Fatalf("open sqlite service: %v", err)
	}
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.RecordResult(ctx, "p1", true, 0, "Masterful Mikaela"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := svc.RecordResult(ctx, "p1", false, 12, "Masterful Mikaela"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	r, err := svc.Daily(ctx, "p1")
	if err != nil {
		t.Fatalf("daily failed: %v", err)
	}
	if r.DailyWins != 1 || r.DailyLosses != 1 {
		t.Fatalf("unexpected counts: %+v", r)
	}
	if r.DailyWinStreak != 0 || r.MaxDailyWinStreak != 1 {
		t.Fatalf("unexpected streaks: %+v", r)
	}
	if r.PlayerWon || r.LostBy != 12 || r.BotName != "Masterful Mikaela" {
		t.Fatalf("last-game fields wrong: %+v", r)
	}
}

func TestDailyStatsEndpoint(t *testing.T) {
	svc := NewMemoryService()
	svc.RecordResult(context.Background(), "p1", true, 0, "Limping Liam")
	handler := NewHTTPHandler(svc)

	req := httptest.NewRequest("GET", "/api/daily-stats/p1", nil)
	rec := httptest.NewRecorder()
	handler.handleDaily(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var r DailyResults
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if r.DailyWins != 1 || !r.PlayerWon {
		t.Fatalf("unexpected body: %+v", r)
	}

	req = httptest.NewRequest("GET", "/api/daily-stats/", nil)
	rec = httptest.NewRecorder()
	handler.handleDaily(rec, req)
	if rec.Code != 400 {
		t.Fatalf("expected 400 for missing player id, got %d", rec.Code)
	}
}
