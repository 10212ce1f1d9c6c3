// Package lobby tracks active rooms by join code.
package lobby

import (
	"errors"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"speed-lite/apps/server/internal/room"
	"speed-lite/apps/server/internal/stats"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I
	codeLength   = 4

	idleRoomTTL   = 10 * time.Minute
	sweepInterval = time.Minute
)

var ErrRoomCreateFailed = errors.New("failed to create room")

// Lobby manages all rooms and their join codes
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
	rng   *rand.Rand

	stats stats.Service

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new lobby and starts the idle-room sweeper.
func New(statsService stats.Service) *Lobby {
	l := &Lobby{
		rooms: make(map[string]*room.Room),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		stats: statsService,
		done:  make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// CreateRoom allocates a fresh join code and spins up its actor.
func (l *Lobby) CreateRoom(broadcastFn func(connID string, data []byte)) (*room.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var code string
	for {
		code = l.newCodeLocked()
		if _, taken := l.rooms[code]; !taken {
			break
		}
	}

	r := room.New(code, broadcastFn, l.stats)
	if r == nil {
		return nil, ErrRoomCreateFailed
	}
	l.rooms[code] = r

	log.Printf("[Lobby] Created room %s (%d active)", code, len(l.rooms))
	return r, nil
}

// QuickMatch finds any room still waiting on an opponent, creating a fresh
// one when every room is full or mid-game.
func (l *Lobby) QuickMatch(broadcastFn func(connID string, data []byte)) (*room.Room, error) {
	l.mu.RLock()
	for _, r := range l.rooms {
		if r.HasOpenSeat() {
			l.mu.RUnlock()
			return r, nil
		}
	}
	l.mu.RUnlock()

	return l.CreateRoom(broadcastFn)
}

// GetRoom returns a room by join code, nil when unknown or closed.
func (l *Lobby) GetRoom(code string) *room.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r := l.rooms[normalizeCode(code)]
	if r == nil || r.IsClosed() {
		return nil
	}
	return r
}

// ListRooms returns all active join codes
func (l *Lobby) ListRooms() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	codes := make([]string, 0, len(l.rooms))
	for code := range l.rooms {
		codes = append(codes, code)
	}
	return codes
}

// Stop shuts down the sweeper and every active room.
func (l *Lobby) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	for code, r := range l.rooms {
		r.Stop()
		delete(l.rooms, code)
	}
}

func (l *Lobby) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

// sweep drops rooms that have been empty of humans past the TTL.
func (l *Lobby) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for code, r := range l.rooms {
		if r.IsClosed() || r.IsIdleFor(idleRoomTTL) {
			r.Stop()
			delete(l.rooms, code)
			log.Printf("[Lobby] Swept idle room %s (%d active)", code, len(l.rooms))
		}
	}
}

func (l *Lobby) newCodeLocked() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[l.rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}

func normalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
