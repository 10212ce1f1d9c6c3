// Package stats keeps the daily results consumed by the client's statistics
// popup: wins, losses and streaks per player per day, plus the outcome of
// the most recent game. It reads engine outcomes and never writes game
// state.
package stats

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "db"
)

type DailyResults struct {
	PlayerID          string `json:"playerId"`
	Day               string `json:"day"`
	DailyWins         int    `json:"dailyWins"`
	DailyLosses       int    `json:"dailyLosses"`
	DailyWinStreak    int    `json:"dailyWinStreak"`
	MaxDailyWinStreak int    `json:"maxDailyWinStreak"`
	PlayerWon         bool   `json:"playerWon"`
	BotName           string `json:"botName"`
	LostBy            int    `json:"lostBy"`
}

type Service interface {
	// RecordResult folds one finished game into the player's current day
	// and returns the updated results.
	RecordResult(ctx context.Context, playerID string, won bool, lostBy int, botName string) (DailyResults, error)
	Daily(ctx context.Context, playerID string) (DailyResults, error)
	Close() error
}

func statsModeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("STATS_MODE")))
	switch raw {
	case "", ModeSQLite:
		return ModeSQLite
	case ModePostgres, "postgres", "postgresql":
		return ModePostgres
	case ModeMemory, "mem":
		return ModeMemory
	default:
		return raw
	}
}

func NewServiceFromEnv() (Service, string, error) {
	mode := statsModeFromEnv()

	switch mode {
	case ModeSQLite:
		svc, err := NewSQLiteServiceFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return svc, mode, nil
	case ModePostgres:
		svc, err := NewPostgresServiceFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return svc, mode, nil
	case ModeMemory:
		return NewMemoryService(), mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid STATS_MODE %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// applyResult is the shared streak bookkeeping for all backends.
func applyResult(r DailyResults, won bool, lostBy int, botName string) DailyResults {
	if won {
		r.DailyWins++
		r.DailyWinStreak++
		if r.DailyWinStreak > r.MaxDailyWinStreak {
			r.MaxDailyWinStreak = r.DailyWinStreak
		}
		r.LostBy = 0
	} else {
		r.DailyLosses++
		r.DailyWinStreak = 0
		r.LostBy = lostBy
	}
	r.PlayerWon = won
	r.BotName = botName
	return r
}

// MemoryService is the in-process backend used in tests and dev setups.
type MemoryService struct {
	mu      sync.Mutex
	days    map[string]DailyResults // playerID+day -> results
	nowFunc func() time.Time
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		days:    make(map[string]DailyResults),
		nowFunc: time.Now,
	}
}

func (m *MemoryService) key(playerID, day string) string {
	return playerID + "|" + day
}

func (m *MemoryService) RecordResult(_ context.Context, playerID string, won bool, lostBy int, botName string) (DailyResults, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := dayKey(m.nowFunc())
	r, ok := m.days[m.key(playerID, day)]
	if !ok {
		r = DailyResults{PlayerID: playerID, Day: day}
	}
	r = applyResult(r, won, lostBy, botName)
	m.days[m.key(playerID, day)] = r
	return r, nil
}

func (m *MemoryService) Daily(_ context.Context, playerID string) (DailyResults, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := dayKey(m.nowFunc())
	r, ok := m.days[m.key(playerID, day)]
	if !ok {
		return DailyResults{PlayerID: playerID, Day: day}, nil
	}
	return r, nil
}

func (m *MemoryService) Close() error { return nil }
