package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const defaultAuthDBName = "speed_auth.db"

// SQLiteManager persists accounts and sessions to a local sqlite file so
// registered players survive server restarts.
type SQLiteManager struct {
	db         *sql.DB
	sessionTTL time.Duration
}

func NewSQLiteManagerFromEnv() (*SQLiteManager, error) {
	path := strings.TrimSpace(os.Getenv("AUTH_DB_PATH"))
	if path == "" {
		path = defaultAuthDBName
	}
	return NewSQLiteManager(path, defaultSessionTTL)
}

func NewSQLiteManager(dbPath string, sessionTTL time.Duration) (*SQLiteManager, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("auth sqlite path is empty")
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", pragma, err)
		}
	}
	if err := ensureSQLiteAuthSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteManager{db: db, sessionTTL: sessionTTL}, nil
}

func ensureSQLiteAuthSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
    player_id     TEXT PRIMARY KEY,
    username      TEXT UNIQUE,
    password_hash BLOB,
    registered    INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_login_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS auth_sessions (
    token      TEXT PRIMARY KEY,
    player_id  TEXT NOT NULL REFERENCES accounts(player_id) ON DELETE CASCADE,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_player ON auth_sessions(player_id);
`)
	if err != nil {
		return fmt.Errorf("auth schema: %w", err)
	}
	return nil
}

func (m *SQLiteManager) Close() error { return m.db.Close() }

func (m *SQLiteManager) Guest() (playerID, sessionToken string) {
	ctx, cancel := opCtx()
	defer cancel()

	playerID = uuid.NewString()
	if _, err := m.db.ExecContext(ctx,
		`INSERT INTO accounts (player_id, registered) VALUES (?, 0)`, playerID); err != nil {
		return "", ""
	}
	token, err := m.issueSession(ctx, playerID)
	if err != nil {
		return "", ""
	}
	return playerID, token
}

func (m *SQLiteManager) Register(username, password string) (playerID, sessionToken string, err error) {
	if err = validateUsername(username); err != nil {
		return "", "", err
	}
	if err = validatePassword(password); err != nil {
		return "", "", err
	}

	normalized := normalizeUsername(username)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := opCtx()
	defer cancel()

	playerID = uuid.NewString()
	_, err = m.db.ExecContext(ctx, `
INSERT INTO accounts (player_id, username, password_hash, registered, last_login_at)
VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)`, playerID, normalized, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return "", "", ErrUsernameTaken
		}
		return "", "", fmt.Errorf("insert account: %w", err)
	}

	sessionToken, err = m.issueSession(ctx, playerID)
	if err != nil {
		return "", "", err
	}
	return playerID, sessionToken, nil
}

func (m *SQLiteManager) Login(username, password string) (playerID, sessionToken string, err error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	ctx, cancel := opCtx()
	defer cancel()

	var hash []byte
	err = m.db.QueryRowContext(ctx, `
SELECT player_id, password_hash FROM accounts
WHERE username = ? AND registered = 1`, normalized).Scan(&playerID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrInvalidCredentials
	}
	if err != nil {
		return "", "", fmt.Errorf("select account: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	if _, err := m.db.ExecContext(ctx,
		`UPDATE accounts SET last_login_at = CURRENT_TIMESTAMP WHERE player_id = ?`, playerID); err != nil {
		return "", "", fmt.Errorf("touch account: %w", err)
	}
	sessionToken, err = m.issueSession(ctx, playerID)
	if err != nil {
		return "", "", err
	}
	return playerID, sessionToken, nil
}

func (m *SQLiteManager) ResolveSession(token string) (playerID, username string, ok bool) {
	if token == "" {
		return "", "", false
	}

	ctx, cancel := opCtx()
	defer cancel()

	now := time.Now()
	var expiresAt int64
	var name sql.NullString
	err := m.db.QueryRowContext(ctx, `
SELECT s.player_id, s.expires_at, a.username
FROM auth_sessions s JOIN accounts a ON a.player_id = s.player_id
WHERE s.token = ?`, token).Scan(&playerID, &expiresAt, &name)
	if err != nil {
		return "", "", false
	}
	if now.UnixMilli() >= expiresAt {
		_, _ = m.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
		return "", "", false
	}

	// Sliding expiry, same as the in-memory manager.
	_, _ = m.db.ExecContext(ctx, `UPDATE auth_sessions SET expires_at = ? WHERE token = ?`,
		now.Add(m.sessionTTL).UnixMilli(), token)
	return playerID, name.String, true
}

func (m *SQLiteManager) Logout(token string) {
	if token == "" {
		return
	}
	ctx, cancel := opCtx()
	defer cancel()
	_, _ = m.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
}

func (m *SQLiteManager) issueSession(ctx context.Context, playerID string) (string, error) {
	token := mustToken()
	_, err := m.db.ExecContext(ctx, `
INSERT INTO auth_sessions (token, player_id, expires_at) VALUES (?, ?, ?)`,
		token, playerID, time.Now().Add(m.sessionTTL).UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return token, nil
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
