package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "speed_local.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS daily_results (
    player_id            TEXT NOT NULL,
    day                  TEXT NOT NULL,
    daily_wins           INTEGER NOT NULL DEFAULT 0,
    daily_losses         INTEGER NOT NULL DEFAULT 0,
    daily_win_streak     INTEGER NOT NULL DEFAULT 0,
    max_daily_win_streak INTEGER NOT NULL DEFAULT 0,
    player_won           INTEGER NOT NULL DEFAULT 0,
    bot_name             TEXT NOT NULL DEFAULT '',
    lost_by              INTEGER NOT NULL DEFAULT 0,
    updated_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (player_id, day)
);
`

// SQLiteService stores daily results in a local sqlite file. Suits the
// single-node deployments this server usually runs as.
type SQLiteService struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func sqlitePathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv("SPEED_DB_PATH")); p != "" {
		return p
	}
	return defaultLocalDBName
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	return NewSQLiteService(sqlitePathFromEnv())
}

func NewSQLiteService(path string) (*SQLiteService, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// modernc sqlite allows one writer; serialize through a single conn.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteService{db: db, nowFunc: time.Now}, nil
}

func (s *SQLiteService) RecordResult(ctx context.Context, playerID string, won bool, lostBy int, botName string) (DailyResults, error) {
	day := dayKey(s.nowFunc())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DailyResults{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	r, err := scanDaily(tx.QueryRowContext(ctx, `
SELECT daily_wins, daily_losses, daily_win_streak, max_daily_win_streak, player_won, bot_name, lost_by
FROM daily_results WHERE player_id = ? AND day = ?`, playerID, day))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return DailyResults{}, fmt.Errorf("select daily: %w", err)
	}
	r.PlayerID = playerID
	r.Day = day
	r = applyResult(r, won, lostBy, botName)

	if _, err := tx.ExecContext(ctx, `
INSERT INTO daily_results (player_id, day, daily_wins, daily_losses, daily_win_streak, max_daily_win_streak, player_won, bot_name, lost_by, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (player_id, day) DO UPDATE SET
    daily_wins = excluded.daily_wins,
    daily_losses = excluded.daily_losses,
    daily_win_streak = excluded.daily_win_streak,
    max_daily_win_streak = excluded.max_daily_win_streak,
    player_won = excluded.player_won,
    bot_name = excluded.bot_name,
    lost_by = excluded.lost_by,
    updated_at = CURRENT_TIMESTAMP`,
		playerID, day, r.DailyWins, r.DailyLosses, r.DailyWinStreak, r.MaxDailyWinStreak,
		boolToInt(r.PlayerWon), r.BotName, r.LostBy); err != nil {
		return DailyResults{}, fmt.Errorf("upsert daily: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return DailyResults{}, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

func (s *SQLiteService) Daily(ctx context.Context, playerID string) (DailyResults, error) {
	day := dayKey(s.nowFunc())

	r, err := scanDaily(s.db.QueryRowContext(ctx, `
SELECT daily_wins, daily_losses, daily_win_streak, max_daily_win_streak, player_won, bot_name, lost_by
FROM daily_results WHERE player_id = ? AND day = ?`, playerID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return DailyResults{PlayerID: playerID, Day: day}, nil
	}
	if err != nil {
		return DailyResults{}, fmt.Errorf("select daily: %w", err)
	}
	r.PlayerID = playerID
	r.Day = day
	return r, nil
}

func (s *SQLiteService) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDaily(row rowScanner) (DailyResults, error) {
	var r DailyResults
	var won int
	err := row.Scan(&r.DailyWins, &r.DailyLosses, &r.DailyWinStreak, &r.MaxDailyWinStreak, &won, &r.BotName, &r.LostBy)
	if err != nil {
		return DailyResults{}, err
	}
	r.PlayerWon = won != 0
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
