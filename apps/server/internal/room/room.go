// Package room hosts one game per room behind an actor goroutine. All
// mutations funnel through a single event queue, so concurrent proposals
// from both players resolve in one total order and exactly one side of a
// race wins.
package room

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"speed-lite/apps/server/internal/codec"
	"speed-lite/apps/server/internal/stats"
	"speed-lite/card"
	"speed-lite/speed"
	"speed-lite/speed/bot"

	"github.com/google/uuid"
)

// Room represents a single game room with an actor model
type Room struct {
	Code string

	mu       sync.RWMutex
	game     *speed.Game
	members  map[string]*Member // connID -> member
	seats    [speed.NumPlayers]string
	started  bool
	finished bool
	closed   bool
	stopOnce sync.Once

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	// Server sequence for authoritative event ordering
	serverSeq uint64

	emptySince time.Time

	// Callback to deliver encoded messages to a connection
	broadcast func(connID string, data []byte)
	stats     stats.Service

	// Bot support
	agent      *bot.Agent
	botConnID  string
	botProfile bot.Profile
}

// Member is one connection inside the room. Seat is speed.InvalidSeat for
// spectators.
type Member struct {
	ConnID   string
	PlayerID string
	Name     string
	Seat     int
	Robot    bool
	JoinedAt time.Time
}

// Event types for the actor message queue
type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventRename
	EventAddBot
	EventStart
	EventPlay
	EventPickup
	EventTopUp
	EventClose
)

// Event represents a message to the room actor
type Event struct {
	Type       EventType
	ConnID     string
	PlayerID   string
	Name       string
	Difficulty bot.Difficulty
	Card       card.Card
	Pile       int
	SeenTop    card.Card
	Timestamp  time.Time
	Response   chan error
}

var ErrRoomClosed = errors.New("room closed")

const deadlockCheckInterval = 500 * time.Millisecond

// New creates a room and starts its actor goroutine.
func New(code string, broadcastFn func(connID string, data []byte), statsService stats.Service) *Room {
	game, err := speed.NewGame(speed.DefaultConfig())
	if err != nil {
		log.Printf("[Room %s] Failed to create game: %v", code, err)
		return nil
	}

	r := &Room{
		Code:       code,
		game:       game,
		members:    make(map[string]*Member),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		broadcast:  broadcastFn,
		stats:      statsService,
		emptySince: time.Now(),
	}
	for i := range r.seats {
		r.seats[i] = ""
	}

	go r.run()

	log.Printf("[Room %s] Created", code)
	return r
}

// run is the main actor loop
func (r *Room) run() {
	// Heartbeat for deadlock detection while a game is in progress.
	ticker := time.NewTicker(deadlockCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-r.events:
			err := r.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			r.tick()
		case <-r.done:
			log.Printf("[Room %s] Actor stopped", r.Code)
			return
		}
	}
}

func (r *Room) handleEvent(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed && e.Type != EventClose {
		return ErrRoomClosed
	}

	switch e.Type {
	case EventJoin:
		return r.handleJoin(e.ConnID, e.PlayerID, e.Name)
	case EventLeave:
		return r.handleLeave(e.ConnID)
	case EventRename:
		return r.handleRename(e.ConnID, e.Name)
	case EventAddBot:
		return r.handleAddBot(e.Difficulty)
	case EventStart:
		return r.handleStart(e.ConnID)
	case EventPlay:
		return r.handlePlay(e.ConnID, e.Card, e.Pile, e.SeenTop)
	case EventPickup:
		return r.handlePickup(e.ConnID)
	case EventTopUp:
		return r.handleTopUp(e.ConnID)
	case EventClose:
		r.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (r *Room) handleJoin(connID, playerID, name string) error {
	now := time.Now()
	resolvedName := normalizeName(name, connID)

	if member, exists := r.members[connID]; exists {
		member.Name = resolvedName
		member.PlayerID = playerID
		r.sendLobbyState(connID)
		if r.started {
			r.sendGameState(connID)
		}
		return nil // Already joined
	}

	member := &Member{
		ConnID:   connID,
		PlayerID: playerID,
		Name:     resolvedName,
		Seat:     speed.InvalidSeat,
		JoinedAt: now,
	}
	r.members[connID] = member
	log.Printf("[Room %s] Connection %s joined as %q", r.Code, connID, resolvedName)

	// Automatic seating while the game has not started; later arrivals
	// spectate.
	if !r.started {
		for seat := 0; seat < speed.NumPlayers; seat++ {
			if r.seats[seat] != "" {
				continue
			}
			if err := r.game.Seat(seat, r.memberGameID(member), resolvedName, false); err != nil {
				log.Printf("[Room %s] Auto-seat failed for %s: %v", r.Code, connID, err)
				break
			}
			r.seats[seat] = connID
			member.Seat = seat
			log.Printf("[Room %s] Seated %s at seat %d", r.Code, connID, seat)
			break
		}
	}
	r.updateEmptySinceLocked(now)

	r.broadcastLobbyState()
	if r.started {
		r.sendGameState(connID)
	}
	return nil
}

func (r *Room) handleLeave(connID string) error {
	member := r.members[connID]
	if member == nil {
		return nil
	}

	delete(r.members, connID)
	if member.Seat != speed.InvalidSeat {
		r.seats[member.Seat] = ""
		if !r.started {
			if err := r.game.Unseat(member.Seat); err != nil {
				log.Printf("[Room %s] Unseat failed for %s: %v", r.Code, connID, err)
			}
		}
		member.Seat = speed.InvalidSeat
	}
	r.updateEmptySinceLocked(time.Now())

	log.Printf("[Room %s] Connection %s left", r.Code, connID)
	r.broadcastLobbyState()
	return nil
}

func (r *Room) handleRename(connID, name string) error {
	member := r.members[connID]
	if member == nil {
		return speed.ErrNotSeatedPlayer
	}
	member.Name = normalizeName(name, connID)

	// Refresh the engine-side name for seated players before start.
	if member.Seat != speed.InvalidSeat && !r.started {
		if err := r.game.Unseat(member.Seat); err == nil {
			if err := r.game.Seat(member.Seat, r.memberGameID(member), member.Name, false); err != nil {
				log.Printf("[Room %s] Re-seat after rename failed for %s: %v", r.Code, connID, err)
			}
		}
	}

	r.broadcastLobbyState()
	return nil
}

func (r *Room) handleAddBot(difficulty bot.Difficulty) error {
	if r.started {
		return errors.New("game already started")
	}
	if r.agent != nil {
		return errors.New("bot already seated")
	}

	seat := speed.InvalidSeat
	for i := 0; i < speed.NumPlayers; i++ {
		if r.seats[i] == "" {
			seat = i
			break
		}
	}
	if seat == speed.InvalidSeat {
		return speed.ErrSeatOccupied
	}

	profile := bot.ProfileFor(difficulty)
	connID := "bot:" + uuid.NewString()
	if err := r.game.Seat(seat, connID, profile.Name, true); err != nil {
		return err
	}

	r.members[connID] = &Member{
		ConnID:   connID,
		Name:     profile.Name,
		Seat:     seat,
		Robot:    true,
		JoinedAt: time.Now(),
	}
	r.seats[seat] = connID
	r.botConnID = connID
	r.botProfile = profile
	r.agent = bot.NewAgent(profile, seat, &roomProposer{room: r}, 0)

	log.Printf("[Room %s] Bot %s (%s) seated at seat %d", r.Code, profile.Name, difficulty, seat)
	r.broadcastLobbyState()
	return nil
}

func (r *Room) handleStart(connID string) error {
	member := r.members[connID]
	if member == nil || member.Seat == speed.InvalidSeat {
		return speed.ErrNotSeatedPlayer
	}

	if err := r.game.Start(); err != nil {
		return err
	}
	r.started = true
	log.Printf("[Room %s] Game started by %s", r.Code, connID)

	r.broadcastGameState()
	if r.agent != nil {
		r.agent.Start()
	}
	return nil
}

func (r *Room) handlePlay(connID string, c card.Card, pile int, seenTop card.Card) error {
	member := r.members[connID]
	if member == nil || member.Seat == speed.InvalidSeat {
		return speed.ErrNotSeatedPlayer
	}

	commit, err := r.game.PlayCard(speed.Move{
		Seat:    member.Seat,
		Card:    c,
		Pile:    pile,
		SeenTop: seenTop,
	})
	if err != nil {
		if speed.IsFatal(err) {
			r.abortLocked(err)
			return err
		}
		// Rejections go only to the proposer; a losing racer may have
		// opened the very deadlock a re-deal must break.
		r.resolveDeadlockLocked()
		return err
	}

	r.broadcastAuthoritative(codec.ServerMoveCommitted, codec.MoveCommitted{
		Seat:      commit.Seat,
		Card:      codec.CardToDTO(commit.Card),
		Pile:      commit.Pile,
		PileTop:   codec.CardToDTO(commit.PileTop),
		HandSize:  commit.HandSize,
		KittySize: commit.KittySize,
	})

	if commit.Finished {
		r.finishLocked(commit)
		return nil
	}
	r.resolveDeadlockLocked()
	return nil
}

func (r *Room) handlePickup(connID string) error {
	member := r.members[connID]
	if member == nil || member.Seat == speed.InvalidSeat {
		return speed.ErrNotSeatedPlayer
	}

	commit, err := r.game.Pickup(member.Seat)
	if err != nil {
		if speed.IsFatal(err) {
			r.abortLocked(err)
			return err
		}
		r.resolveDeadlockLocked()
		return err
	}

	r.broadcastAuthoritative(codec.ServerPickupCommitted, codec.PickupCommitted{
		Seat:      commit.Seat,
		Card:      codec.CardToDTO(commit.Picked),
		HandSize:  commit.HandSize,
		KittySize: commit.KittySize,
	})

	if commit.Finished {
		r.finishLocked(commit)
		return nil
	}
	r.resolveDeadlockLocked()
	return nil
}

func (r *Room) handleTopUp(connID string) error {
	member := r.members[connID]
	if member == nil || member.Seat == speed.InvalidSeat {
		return speed.ErrNotSeatedPlayer
	}
	return r.resolveDeadlockLocked()
}

// resolveDeadlockLocked asks the engine for a re-deal. The engine refuses
// when any move is still available, so calling this freely is safe.
func (r *Room) resolveDeadlockLocked() error {
	if !r.started || r.finished {
		return nil
	}

	commit, applied, err := r.game.TopUp()
	if err != nil {
		if speed.IsFatal(err) {
			r.abortLocked(err)
		}
		return err
	}
	if !applied {
		return nil
	}

	if commit.Kind == speed.CommitTopUp {
		tops := make([]codec.CardDTO, 0, len(commit.NewTops))
		for _, top := range commit.NewTops {
			tops = append(tops, codec.CardToDTO(top))
		}
		log.Printf("[Room %s] Deadlock broken, new tops %v", r.Code, commit.NewTops)
		r.broadcastAuthoritative(codec.ServerTopUp, codec.TopUpApplied{NewTops: tops})
	}

	if commit.Finished {
		r.finishLocked(commit)
	}
	return nil
}

func (r *Room) finishLocked(commit speed.Commit) {
	if r.finished {
		return
	}
	r.finished = true

	winnerName := ""
	if commit.Winner != speed.InvalidSeat {
		if m := r.members[r.seats[commit.Winner]]; m != nil {
			winnerName = m.Name
		}
	}

	botText := ""
	if r.agent != nil && !commit.Draw {
		if r.seats[commit.Winner] == r.botConnID {
			botText = r.botProfile.LoseText
		} else {
			botText = r.botProfile.WinText
		}
	}

	log.Printf("[Room %s] Game finished: winner=%d (%s) lostBy=%d draw=%v",
		r.Code, commit.Winner, winnerName, commit.LostBy, commit.Draw)

	r.broadcastAuthoritative(codec.ServerGameFinished, codec.GameFinished{
		Winner:     commit.Winner,
		WinnerName: winnerName,
		LostBy:     commit.LostBy,
		Draw:       commit.Draw,
		BotText:    botText,
	})

	r.recordResultsLocked(commit)

	if r.agent != nil {
		// Stop from outside the actor loop. The agent may be blocked on a
		// SubmitEvent that this goroutine has to answer first.
		go r.agent.Stop()
	}
}

// recordResultsLocked folds the outcome into daily stats for every seated
// human who identified themselves. Only bot games count.
func (r *Room) recordResultsLocked(commit speed.Commit) {
	if r.stats == nil || r.agent == nil || commit.Draw {
		return
	}

	botName := r.botProfile.Name
	for seat := 0; seat < speed.NumPlayers; seat++ {
		member := r.members[r.seats[seat]]
		if member == nil || member.Robot || strings.TrimSpace(member.PlayerID) == "" {
			continue
		}
		playerID := member.PlayerID
		won := seat == commit.Winner
		lostBy := 0
		if !won {
			lostBy = commit.LostBy
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := r.stats.RecordResult(ctx, playerID, won, lostBy, botName); err != nil {
				log.Printf("[Room %s] Record result failed for %s: %v", r.Code, playerID, err)
			}
		}()
	}
}

func (r *Room) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if err := r.resolveDeadlockLocked(); err != nil && !errors.Is(err, speed.ErrGameOver) {
		log.Printf("[Room %s] Deadlock check failed: %v", r.Code, err)
	}
}

func (r *Room) abortLocked(err error) {
	log.Printf("[Room %s] FATAL engine state, aborting room: %v", r.Code, err)
	r.broadcastAuthoritative(codec.ServerError, codec.ErrorResponse{
		Reason:  "Internal",
		Message: "room aborted: internal game state error",
	})
	r.stopLocked()
}

// SubmitEvent sends an event to the actor and waits for the result.
func (r *Room) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case r.events <- e:
	case <-r.done:
		return ErrRoomClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// RelayPosition fans a drag hint out to everyone else in the room. This
// bypasses the actor queue on purpose: position hints are ephemeral, carry
// no ordering promise, and never touch game state.
func (r *Room) RelayPosition(fromConnID string, upd codec.PositionUpdate) {
	data, err := codec.Encode(codec.ServerPosition, r.Code, 0, upd)
	if err != nil {
		log.Printf("[Room %s] Failed to encode position: %v", r.Code, err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for connID, member := range r.members {
		if connID == fromConnID || member.Robot {
			continue
		}
		r.broadcast(connID, data)
	}
}

// Stop shuts down the room actor
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Room) stopLocked() {
	r.closed = true
	if r.agent != nil {
		go r.agent.Stop()
	}
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

func (r *Room) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Room) IsIdleFor(ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return true
	}
	if r.humanCountLocked() > 0 {
		return false
	}
	if r.emptySince.IsZero() {
		return false
	}
	return time.Since(r.emptySince) >= ttl
}

// HasOpenSeat reports whether a joiner would be seated rather than spectate.
func (r *Room) HasOpenSeat() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.started {
		return false
	}
	for _, connID := range r.seats {
		if connID == "" {
			return true
		}
	}
	return false
}

// Snapshot returns current game state (thread-safe)
func (r *Room) Snapshot() speed.Snapshot {
	return r.game.Snapshot()
}

func (r *Room) humanCountLocked() int {
	n := 0
	for _, m := range r.members {
		if !m.Robot {
			n++
		}
	}
	return n
}

func (r *Room) updateEmptySinceLocked(now time.Time) {
	if r.humanCountLocked() == 0 {
		if r.emptySince.IsZero() {
			r.emptySince = now
		}
		return
	}
	r.emptySince = time.Time{}
}

// memberGameID prefers the client-supplied persistent player id so stats
// line up across reconnects.
func (r *Room) memberGameID(m *Member) string {
	if strings.TrimSpace(m.PlayerID) != "" {
		return m.PlayerID
	}
	return m.ConnID
}

func normalizeName(raw, connID string) string {
	name := strings.TrimSpace(raw)
	if name != "" {
		return name
	}
	if len(connID) >= 8 {
		return "guest_" + connID[:8]
	}
	return "guest"
}

// --- broadcast helpers ---

func (r *Room) nextSeq() uint64 {
	r.serverSeq++
	return r.serverSeq
}

// broadcastAuthoritative assigns the next room sequence and delivers to
// every human connection. Callers run inside the actor, so sequence order
// matches commit order.
func (r *Room) broadcastAuthoritative(typ codec.ServerType, payload any) {
	data, err := codec.Encode(typ, r.Code, r.nextSeq(), payload)
	if err != nil {
		log.Printf("[Room %s] Failed to encode %s: %v", r.Code, typ, err)
		return
	}
	for connID, member := range r.members {
		if member.Robot {
			continue
		}
		r.broadcast(connID, data)
	}
}

func (r *Room) sendAuthoritative(connID string, typ codec.ServerType, payload any) {
	data, err := codec.Encode(typ, r.Code, r.nextSeq(), payload)
	if err != nil {
		log.Printf("[Room %s] Failed to encode %s: %v", r.Code, typ, err)
		return
	}
	r.broadcast(connID, data)
}

func (r *Room) buildLobbyStateLocked() codec.LobbyState {
	state := codec.LobbyState{
		Code:        r.Code,
		GameStarted: r.started,
	}
	for _, m := range r.members {
		state.Connections = append(state.Connections, codec.LobbyConnection{
			ID:     m.ConnID,
			Name:   m.Name,
			Seated: m.Seat != speed.InvalidSeat,
		})
	}
	return state
}

func (r *Room) broadcastLobbyState() {
	r.broadcastAuthoritative(codec.ServerLobbyState, r.buildLobbyStateLocked())
}

func (r *Room) sendLobbyState(connID string) {
	r.sendAuthoritative(connID, codec.ServerLobbyState, r.buildLobbyStateLocked())
}

func (r *Room) broadcastGameState() {
	r.broadcastAuthoritative(codec.ServerGameState, codec.SnapshotToState(r.game.Snapshot()))
}

func (r *Room) sendGameState(connID string) {
	r.sendAuthoritative(connID, codec.ServerGameState, codec.SnapshotToState(r.game.Snapshot()))
}

// --- bot wiring ---

// roomProposer routes bot proposals through the same actor queue as human
// messages, so bot moves obey the identical arbitration rules.
type roomProposer struct {
	room *Room
}

func (p *roomProposer) SubmitMove(m speed.Move) error {
	return p.room.SubmitEvent(Event{
		Type:    EventPlay,
		ConnID:  p.room.botConnID,
		Card:    m.Card,
		Pile:    m.Pile,
		SeenTop: m.SeenTop,
	})
}

func (p *roomProposer) SubmitPickup(seat int) error {
	return p.room.SubmitEvent(Event{
		Type:   EventPickup,
		ConnID: p.room.botConnID,
	})
}

func (p *roomProposer) GameSnapshot() speed.Snapshot {
	return p.room.game.Snapshot()
}
