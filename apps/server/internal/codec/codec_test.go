package codec

import (
	"encoding/json"
	"testing"

	"speed-lite/card"
	"speed-lite/speed"
)

func TestDecodeClientRejectsUnknownType(t *testing.T) {
	if _, err := DecodeClient([]byte(`{"type":"drop_table"}`)); err == nil {
		t.Fatalf("expected unknown type to be rejected")
	}
	if _, err := DecodeClient([]byte(`not json`)); err == nil {
		t.Fatalf("expected malformed envelope to be rejected")
	}
	env, err := DecodeClient([]byte(`{"type":"play_card","room":"ABCD","data":{"cardId":7,"pile":1}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Type != ClientPlayCard || env.Room != "ABCD" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestPlayCardPayload(t *testing.T) {
	env, err := DecodeClient([]byte(`{"type":"play_card","data":{"cardId":23,"pile":1,"seenTop":40}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	req, err := env.PlayCard()
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}
	if req.CardID != 23 || req.Pile != 1 || req.SeenTop != 40 {
		t.Fatalf("unexpected payload: %+v", req)
	}

	empty := ClientEnvelope{Type: ClientPlayCard}
	if _, err := empty.PlayCard(); err == nil {
		t.Fatalf("expected missing payload error")
	}
}

func TestPositionPayloadNilPos(t *testing.T) {
	env, err := DecodeClient([]byte(`{"type":"position","data":{"cardId":9,"pos":null,"location":2,"index":0}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	upd, err := env.Position()
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}
	if upd.Pos != nil {
		t.Fatalf("expected nil pos for drag end")
	}

	env, _ = DecodeClient([]byte(`{"type":"position","data":{"cardId":9,"pos":{"x":0.25,"y":0.75}}}`))
	upd, err = env.Position()
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}
	if upd.Pos == nil || upd.Pos.X != 0.25 || upd.Pos.Y != 0.75 {
		t.Fatalf("unexpected pos: %+v", upd.Pos)
	}
}

func TestCardFromID(t *testing.T) {
	if got := CardFromID(byte(card.CardHeart7)); got != card.CardHeart7 {
		t.Fatalf("expected heart 7 back, got %v", got)
	}
	for _, id := range []byte{0x00, 0x0E, 0x40, 0x1F, 0xFF} {
		if got := CardFromID(id); got != card.CardInvalid {
			t.Fatalf("expected 0x%02X to map to CardInvalid, got %v", id, got)
		}
	}
}

func TestEncodeEnvelope(t *testing.T) {
	data, err := Encode(ServerMoveCommitted, "ABCD", 7, MoveCommitted{Seat: 1})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if string(env["type"]) != `"move_committed"` {
		t.Fatalf("unexpected type: %s", env["type"])
	}
	if string(env["seq"]) != "7" {
		t.Fatalf("unexpected seq: %s", env["seq"])
	}
	if _, ok := env["ts"]; !ok {
		t.Fatalf("expected ts to be set")
	}
}

func TestSnapshotToState(t *testing.T) {
	g, err := speed.NewGame(speed.Config{HandSize: 5, TopUpLookahead: 5, Seed: 11})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	if err := g.Seat(0, "a", "Alice", false); err != nil {
		t.Fatalf("seat: %v", err)
	}
	if err := g.Seat(1, "b", "Bob", true); err != nil {
		t.Fatalf("seat: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	gs := SnapshotToState(g.Snapshot())
	if gs.Phase != "inprogress" {
		t.Fatalf("unexpected phase %q", gs.Phase)
	}
	if len(gs.Players) != speed.NumPlayers || len(gs.Piles) != speed.NumPiles {
		t.Fatalf("unexpected shape: %d players, %d piles", len(gs.Players), len(gs.Piles))
	}
	if len(gs.Players[0].Hand) != 5 || gs.Players[0].KittyCount != 20 {
		t.Fatalf("unexpected deal: %+v", gs.Players[0])
	}
	if !gs.Players[1].Robot {
		t.Fatalf("expected seat 1 to be a robot")
	}
	for _, pile := range gs.Piles {
		if pile.Count != 1 || pile.Top.ID == 0 {
			t.Fatalf("unexpected pile: %+v", pile)
		}
	}
}

func TestReasonFor(t *testing.T) {
	cases := map[error]string{
		speed.ErrStaleTarget:       "StaleTarget",
		speed.ErrPileNotAdjacent:   "PileNotAdjacent",
		speed.ErrCardNotInHand:     "CardNotInHand",
		speed.ErrHandFull:          "HandFull",
		speed.ErrKittyEmpty:        "KittyEmpty",
		speed.ErrNotSeatedPlayer:   "NotASeatedPlayer",
		speed.ErrNotEnoughPlayers:  "NotEnoughPlayers",
		speed.ErrGameNotStarted:    "GameNotStarted",
		speed.ErrGameOver:          "GameAlreadyOver",
		speed.ErrInvalidState("x"): "Internal",
	}
	for err, want := range cases {
		if got := ReasonFor(err); got != want {
			t.Fatalf("ReasonFor(%v) = %q, want %q", err, got, want)
		}
	}
}
