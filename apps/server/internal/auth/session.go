package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Manager provides in-memory account/session management for single-binary
// deployment. It can be swapped to persistent storage later without changing
// handler contracts.
type Manager struct {
	mu sync.Mutex

	sessionTTL    time.Duration
	sessions      map[string]sessionRecord // token -> player
	accountsByID  map[string]accountRecord // playerID -> profile
	accountsByKey map[string]string        // normalized username -> playerID
}

type sessionRecord struct {
	PlayerID  string
	ExpiresAt time.Time
}

type accountRecord struct {
	PlayerID      string
	Username      string
	PasswordHash  []byte
	Registered    bool
	LastLoginTime time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessionTTL:    defaultSessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[string]accountRecord),
		accountsByKey: make(map[string]string),
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if !usernamePattern.MatchString(trimmed) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(playerID string, now time.Time) string {
	sessionToken := mustToken()
	m.sessions[sessionToken] = sessionRecord{
		PlayerID:  playerID,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	return sessionToken
}

func (m *Manager) resolveSessionLocked(token string, now time.Time) (playerID, username string, ok bool) {
	if token == "" {
		return "", "", false
	}
	rec, exists := m.sessions[token]
	if !exists {
		return "", "", false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return "", "", false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec

	profile := m.accountsByID[rec.PlayerID]
	return rec.PlayerID, profile.Username, true
}

// Guest mints an anonymous player identity with a fresh session.
func (m *Manager) Guest() (playerID, sessionToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playerID = uuid.NewString()
	m.accountsByID[playerID] = accountRecord{PlayerID: playerID}
	sessionToken = m.issueSessionLocked(playerID, time.Now())
	return playerID, sessionToken
}

// Register creates a new account and returns an authenticated session token.
func (m *Manager) Register(username, password string) (playerID, sessionToken string, err error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountsByKey[normalized]; exists {
		return "", "", ErrUsernameTaken
	}

	playerID = uuid.NewString()
	now := time.Now()
	m.accountsByID[playerID] = accountRecord{
		PlayerID:      playerID,
		Username:      normalized,
		PasswordHash:  passwordHash,
		Registered:    true,
		LastLoginTime: now,
	}
	m.accountsByKey[normalized] = playerID

	sessionToken = m.issueSessionLocked(playerID, now)
	return playerID, sessionToken, nil
}

// Login validates account credentials and returns a fresh authenticated session.
func (m *Manager) Login(username, password string) (playerID, sessionToken string, err error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	playerID, exists := m.accountsByKey[normalized]
	if !exists {
		return "", "", ErrInvalidCredentials
	}

	profile := m.accountsByID[playerID]
	if !profile.Registered || len(profile.PasswordHash) == 0 {
		return "", "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	now := time.Now()
	profile.LastLoginTime = now
	m.accountsByID[playerID] = profile
	sessionToken = m.issueSessionLocked(playerID, now)
	return playerID, sessionToken, nil
}

// ResolveSession validates and refreshes a session token.
func (m *Manager) ResolveSession(token string) (playerID, username string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveSessionLocked(token, time.Now())
}

// Logout invalidates a session token.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) Close() error { return nil }

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
