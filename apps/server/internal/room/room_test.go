package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"speed-lite/apps/server/internal/codec"
	"speed-lite/apps/server/internal/stats"
	"speed-lite/speed"
	"speed-lite/speed/bot"
)

// recorder captures everything the room delivers, keyed by connection.
type recorder struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func newRecorder() *recorder {
	return &recorder{msgs: make(map[string][][]byte)}
}

func (r *recorder) deliver(connID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	r.msgs[connID] = append(r.msgs[connID], buf)
}

type envelope struct {
	Type string          `json:"type"`
	Room string          `json:"room"`
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

func (r *recorder) envelopes(t *testing.T, connID string) []envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]envelope, 0, len(r.msgs[connID]))
	for _, raw := range r.msgs[connID] {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("undecodable broadcast: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func (r *recorder) countType(t *testing.T, connID, typ string) int {
	t.Helper()
	n := 0
	for _, env := range r.envelopes(t, connID) {
		if env.Type == typ {
			n++
		}
	}
	return n
}

func join(t *testing.T, r *Room, connID, name string) {
	t.Helper()
	if err := r.SubmitEvent(Event{Type: EventJoin, ConnID: connID, Name: name}); err != nil {
		t.Fatalf("join %s failed: %v", connID, err)
	}
}

func newTestRoom(t *testing.T) (*Room, *recorder) {
	t.Helper()
	rec := newRecorder()
	r := New("TEST", rec.deliver, nil)
	if r == nil {
		t.Fatalf("room creation failed")
	}
	t.Cleanup(r.Stop)
	return r, rec
}

func TestRoomAutoSeatsFirstTwoJoiners(t *testing.T) {
	r, rec := newTestRoom(t)

	join(t, r, "c1", "Alice")
	join(t, r, "c2", "Bob")
	join(t, r, "c3", "Watcher")

	r.mu.RLock()
	seat1, seat2 := r.members["c1"].Seat, r.members["c2"].Seat
	spectator := r.members["c3"].Seat
	r.mu.RUnlock()

	if seat1 == speed.InvalidSeat || seat2 == speed.InvalidSeat || seat1 == seat2 {
		t.Fatalf("expected two distinct seats, got %d and %d", seat1, seat2)
	}
	if spectator != speed.InvalidSeat {
		t.Fatalf("third joiner should spectate, got seat %d", spectator)
	}
	if rec.countType(t, "c3", "lobby_state") == 0 {
		t.Fatalf("spectator should receive lobby state")
	}
}

func TestRoomSpectatorCannotAct(t *testing.T) {
	r, rec := newTestRoom(t)
	join(t, r, "c1", "Alice")
	join(t, r, "c2", "Bob")
	join(t, r, "c3", "Watcher")

	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c3"}); !errors.Is(err, speed.ErrNotSeatedPlayer) {
		t.Fatalf("spectator start: want ErrNotSeatedPlayer, got %v", err)
	}
	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c1"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := r.SubmitEvent(Event{Type: EventPickup, ConnID: "c3"}); !errors.Is(err, speed.ErrNotSeatedPlayer) {
		t.Fatalf("spectator pickup: want ErrNotSeatedPlayer, got %v", err)
	}

	// Spectators still see the authoritative stream.
	if rec.countType(t, "c3", "game_state") == 0 {
		t.Fatalf("spectator should receive the game state on start")
	}
}

func TestRoomStartRequiresTwoPlayers(t *testing.T) {
	r, _ := newTestRoom(t)
	join(t, r, "c1", "Alice")

	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c1"}); !errors.Is(err, speed.ErrNotEnoughPlayers) {
		t.Fatalf("want ErrNotEnoughPlayers, got %v", err)
	}
}

func TestRoomRejectionGoesOnlyToProposer(t *testing.T) {
	r, rec := newTestRoom(t)
	join(t, r, "c1", "Alice")
	join(t, r, "c2", "Bob")
	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c1"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// A card that is guaranteed not to be in the hand.
	err := r.SubmitEvent(Event{Type: EventPlay, ConnID: "c1", Card: 0})
	if err == nil {
		t.Fatalf("expected a rejection")
	}
	if speed.IsFatal(err) {
		t.Fatalf("rejection must not be fatal: %v", err)
	}

	for _, connID := range []string{"c1", "c2"} {
		if n := rec.countType(t, connID, "move_committed"); n != 0 {
			t.Fatalf("rejection must not broadcast commits, %s saw %d", connID, n)
		}
		if n := rec.countType(t, connID, "error"); n != 0 {
			t.Fatalf("rejection must not broadcast errors, %s saw %d", connID, n)
		}
	}
}

func TestRoomAuthoritativeSeqMonotonic(t *testing.T) {
	r, rec := newTestRoom(t)
	join(t, r, "c1", "Alice")
	join(t, r, "c2", "Bob")
	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c1"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := r.SubmitEvent(Event{Type: EventRename, ConnID: "c1", Name: "Alicia"}); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	var last uint64
	for _, env := range rec.envelopes(t, "c2") {
		if env.Type == string(codec.ServerPosition) {
			continue
		}
		if env.Seq <= last {
			t.Fatalf("seq not strictly increasing: %d after %d (%s)", env.Seq, last, env.Type)
		}
		last = env.Seq
	}
	if last == 0 {
		t.Fatalf("expected authoritative messages")
	}
}

func TestRelayPositionSkipsSenderAndCarriesNoSeq(t *testing.T) {
	r, rec := newTestRoom(t)
	join(t, r, "c1", "Alice")
	join(t, r, "c2", "Bob")

	r.RelayPosition("c1", codec.PositionUpdate{CardID: 9, Pos: &codec.NormalizedPos{X: 0.5, Y: 0.5}})

	if n := rec.countType(t, "c1", "position"); n != 0 {
		t.Fatalf("sender must not receive its own position relay, saw %d", n)
	}
	envs := rec.envelopes(t, "c2")
	found := false
	for _, env := range envs {
		if env.Type == "position" {
			found = true
			if env.Seq != 0 {
				t.Fatalf("position relay must carry seq 0, got %d", env.Seq)
			}
		}
	}
	if !found {
		t.Fatalf("other connection should receive the position relay")
	}
}

func TestRoomAddBot(t *testing.T) {
	r, rec := newTestRoom(t)
	join(t, r, "c1", "Alice")

	if err := r.SubmitEvent(Event{Type: EventAddBot, ConnID: "c1", Difficulty: bot.Hard}); err != nil {
		t.Fatalf("add bot failed: %v", err)
	}
	if err := r.SubmitEvent(Event{Type: EventAddBot, ConnID: "c1", Difficulty: bot.Easy}); err == nil {
		t.Fatalf("second bot must be rejected")
	}

	r.mu.RLock()
	agent := r.agent
	botConn := r.botConnID
	r.mu.RUnlock()
	if agent == nil || botConn == "" {
		t.Fatalf("bot not registered")
	}

	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c1"}); err != nil {
		t.Fatalf("start with bot failed: %v", err)
	}
	if rec.countType(t, "c1", "game_state") == 0 {
		t.Fatalf("expected game state after start")
	}
	if n := rec.countType(t, botConn, "game_state"); n != 0 {
		t.Fatalf("bot connection must not receive broadcasts, saw %d", n)
	}
}

func TestRoomBotGameFinishes(t *testing.T) {
	if testing.Short() {
		t.Skip("bot game runs on wall-clock delays")
	}

	r, rec := newTestRoom(t)
	join(t, r, "c1", "Alice")
	if err := r.SubmitEvent(Event{Type: EventAddBot, ConnID: "c1", Difficulty: bot.Impossible}); err != nil {
		t.Fatalf("add bot failed: %v", err)
	}
	if err := r.SubmitEvent(Event{Type: EventStart, ConnID: "c1"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// The human never acts; the bot plus the deadlock ticker must still
	// drive the game to an end.
	deadline := time.After(3 * time.Minute)
	for {
		if rec.countType(t, "c1", "game_finished") > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("bot game did not finish in time")
		case <-time.After(250 * time.Millisecond):
		}
	}

	snap := r.Snapshot()
	if snap.Phase != speed.PhaseFinished {
		t.Fatalf("engine phase should be finished, got %v", snap.Phase)
	}
}

func TestRoomRecordsBotGameResults(t *testing.T) {
	rec := newRecorder()
	svc := stats.NewMemoryService()
	r := New("TEST", rec.deliver, svc)
	if r == nil {
		t.Fatalf("room creation failed")
	}
	defer r.Stop()

	if err := r.SubmitEvent(Event{Type: EventJoin, ConnID: "c1", PlayerID: "player-1", Name: "Alice"}); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := r.SubmitEvent(Event{Type: EventAddBot, ConnID: "c1", Difficulty: bot.Easy}); err != nil {
		t.Fatalf("add bot failed: %v", err)
	}

	r.mu.Lock()
	r.finishLocked(speed.Commit{Finished: true, Winner: 0, LostBy: 9})
	r.mu.Unlock()

	// Stats are persisted off the actor goroutine.
	var daily stats.DailyResults
	deadline := time.Now().Add(2 * time.Second)
	for {
		var err error
		daily, err = svc.Daily(context.Background(), "player-1")
		if err != nil {
			t.Fatalf("daily failed: %v", err)
		}
		if daily.DailyWins > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if daily.DailyWins != 1 || !daily.PlayerWon {
		t.Fatalf("expected recorded win, got %+v", daily)
	}
	if daily.BotName == "" {
		t.Fatalf("expected bot name on result")
	}
	if rec.countType(t, "c1", "game_finished") != 1 {
		t.Fatalf("expected exactly one game_finished broadcast")
	}
}

func TestRoomIdleAfterEveryoneLeaves(t *testing.T) {
	r, _ := newTestRoom(t)
	join(t, r, "c1", "Alice")

	if r.IsIdleFor(0) {
		t.Fatalf("room with a member is not idle")
	}
	if err := r.SubmitEvent(Event{Type: EventLeave, ConnID: "c1"}); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if !r.IsIdleFor(0) {
		t.Fatalf("empty room should be idle")
	}
}
