// Package codec defines the closed set of typed messages exchanged over the
// WebSocket boundary. Every payload is validated into a concrete struct here
// before anything downstream sees it; unknown variants are rejected at the
// edge.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"speed-lite/card"
	"speed-lite/speed"
)

// --- client -> server ---

type ClientType string

const (
	ClientCreateRoom ClientType = "create_room"
	ClientJoinRoom   ClientType = "join_room"
	ClientQuickMatch ClientType = "quick_match"
	ClientUpdateName ClientType = "update_name"
	ClientRequestBot ClientType = "request_bot"
	ClientStartGame  ClientType = "start_game"
	ClientPlayCard   ClientType = "play_card"
	ClientPickup     ClientType = "pickup"
	ClientTopUp      ClientType = "top_up"
	ClientPosition   ClientType = "position"
)

var clientTypes = map[ClientType]bool{
	ClientCreateRoom: true,
	ClientJoinRoom:   true,
	ClientQuickMatch: true,
	ClientUpdateName: true,
	ClientRequestBot: true,
	ClientStartGame:  true,
	ClientPlayCard:   true,
	ClientPickup:     true,
	ClientTopUp:      true,
	ClientPosition:   true,
}

type ClientEnvelope struct {
	Type ClientType      `json:"type"`
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func DecodeClient(data []byte) (ClientEnvelope, error) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ClientEnvelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if !clientTypes[env.Type] {
		return ClientEnvelope{}, fmt.Errorf("unknown message type %q", env.Type)
	}
	return env, nil
}

func (e ClientEnvelope) payload(dst any) error {
	if len(e.Data) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(e.Data, dst)
}

type JoinRoomRequest struct {
	Name     string `json:"name"`
	PlayerID string `json:"playerId,omitempty"`
}

type UpdateNameRequest struct {
	Name string `json:"name"`
}

type RequestBotRequest struct {
	Difficulty string `json:"difficulty"`
}

type PlayCardRequest struct {
	CardID  byte `json:"cardId"`
	Pile    int  `json:"pile"`
	SeenTop byte `json:"seenTop,omitempty"`
}

// NormalizedPos is a 0..1 board-relative coordinate pair.
type NormalizedPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionUpdate is the ephemeral drag hint. Pos == nil means the drag
// ended and the card snaps home. Never validated against game rules.
type PositionUpdate struct {
	CardID   byte           `json:"cardId"`
	Pos      *NormalizedPos `json:"pos"`
	Location int            `json:"location"`
	Index    int            `json:"index"`
}

func (e ClientEnvelope) JoinRoom() (JoinRoomRequest, error) {
	var req JoinRoomRequest
	err := e.payload(&req)
	return req, err
}

func (e ClientEnvelope) UpdateName() (UpdateNameRequest, error) {
	var req UpdateNameRequest
	err := e.payload(&req)
	return req, err
}

func (e ClientEnvelope) RequestBot() (RequestBotRequest, error) {
	var req RequestBotRequest
	err := e.payload(&req)
	return req, err
}

func (e ClientEnvelope) PlayCard() (PlayCardRequest, error) {
	var req PlayCardRequest
	err := e.payload(&req)
	return req, err
}

func (e ClientEnvelope) Position() (PositionUpdate, error) {
	var req PositionUpdate
	err := e.payload(&req)
	return req, err
}

// --- server -> client ---

type ServerType string

const (
	ServerLobbyState      ServerType = "lobby_state"
	ServerGameState       ServerType = "game_state"
	ServerMoveCommitted   ServerType = "move_committed"
	ServerPickupCommitted ServerType = "pickup_committed"
	ServerTopUp           ServerType = "top_up"
	ServerGameFinished    ServerType = "game_finished"
	ServerPosition        ServerType = "position"
	ServerError           ServerType = "error"
)

// ServerEnvelope frames every server message. Seq is set only on the
// authoritative channel and is strictly increasing per room; ephemeral
// relays carry Seq 0 and no ordering promise.
type ServerEnvelope struct {
	Type ServerType `json:"type"`
	Room string     `json:"room,omitempty"`
	Seq  uint64     `json:"seq,omitempty"`
	Ts   int64      `json:"ts"`
	Data any        `json:"data,omitempty"`
}

func Encode(typ ServerType, room string, seq uint64, payload any) ([]byte, error) {
	return json.Marshal(ServerEnvelope{
		Type: typ,
		Room: room,
		Seq:  seq,
		Ts:   time.Now().UnixMilli(),
		Data: payload,
	})
}

type CardDTO struct {
	ID    byte   `json:"id"`
	Label string `json:"label"`
}

func CardToDTO(c card.Card) CardDTO {
	return CardDTO{ID: byte(c), Label: card.RankString(c.Rank()) + c.Suit().Letter()}
}

// CardFromID converts a wire card id back to its engine value. Malformed
// ids map to CardInvalid and get rejected by move validation downstream.
func CardFromID(id byte) card.Card {
	c := card.Card(id)
	rank := byte(c & 0x0F)
	suit := byte(c >> 4)
	if rank < 1 || rank > 13 || suit > 3 {
		return card.CardInvalid
	}
	return c
}

func CardsToDTO(cards []card.Card) []CardDTO {
	out := make([]CardDTO, len(cards))
	for i, c := range cards {
		out[i] = CardToDTO(c)
	}
	return out
}

type LobbyConnection struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Seated bool   `json:"seated"`
}

type LobbyState struct {
	Code        string            `json:"code"`
	Connections []LobbyConnection `json:"connections"`
	GameStarted bool              `json:"gameStarted"`
}

type PlayerState struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Seat       int       `json:"seat"`
	Robot      bool      `json:"robot"`
	Hand       []CardDTO `json:"hand"`
	KittyCount int       `json:"kittyCount"`
}

type PileState struct {
	Top   CardDTO `json:"top"`
	Count int     `json:"count"`
}

type GameState struct {
	Phase   string        `json:"phase"`
	Players []PlayerState `json:"players"`
	Piles   []PileState   `json:"piles"`
	Winner  int           `json:"winner"`
	LostBy  int           `json:"lostBy,omitempty"`
	Draw    bool          `json:"draw,omitempty"`
}

// SnapshotToState converts an engine snapshot to its wire shape. Hands are
// open information in speed, so no per-viewer filtering happens here.
func SnapshotToState(snap speed.Snapshot) GameState {
	gs := GameState{
		Phase:  snap.Phase.String(),
		Winner: snap.Winner,
		LostBy: snap.LostBy,
		Draw:   snap.Draw,
	}
	for _, p := range snap.Players {
		gs.Players = append(gs.Players, PlayerState{
			ID:         p.ID,
			Name:       p.Name,
			Seat:       p.Seat,
			Robot:      p.Robot,
			Hand:       CardsToDTO(p.Hand),
			KittyCount: p.KittyCount,
		})
	}
	for _, pile := range snap.Piles {
		gs.Piles = append(gs.Piles, PileState{Top: CardToDTO(pile.Top), Count: pile.Count})
	}
	return gs
}

type MoveCommitted struct {
	Seat      int     `json:"seat"`
	Card      CardDTO `json:"card"`
	Pile      int     `json:"pile"`
	PileTop   CardDTO `json:"pileTop"`
	HandSize  int     `json:"handSize"`
	KittySize int     `json:"kittySize"`
}

type PickupCommitted struct {
	Seat      int     `json:"seat"`
	Card      CardDTO `json:"card"`
	HandSize  int     `json:"handSize"`
	KittySize int     `json:"kittySize"`
}

type TopUpApplied struct {
	NewTops []CardDTO `json:"newTops"`
}

type GameFinished struct {
	Winner     int    `json:"winner"`
	WinnerName string `json:"winnerName,omitempty"`
	LostBy     int    `json:"lostBy"`
	Draw       bool   `json:"draw,omitempty"`
	BotText    string `json:"botText,omitempty"`
}

type ErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ReasonFor maps an engine rejection onto its wire reason code.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, speed.ErrCardNotInHand):
		return "CardNotInHand"
	case errors.Is(err, speed.ErrPileNotAdjacent):
		return "PileNotAdjacent"
	case errors.Is(err, speed.ErrStaleTarget):
		return "StaleTarget"
	case errors.Is(err, speed.ErrHandFull):
		return "HandFull"
	case errors.Is(err, speed.ErrKittyEmpty):
		return "KittyEmpty"
	case errors.Is(err, speed.ErrNotSeatedPlayer):
		return "NotASeatedPlayer"
	case errors.Is(err, speed.ErrNotEnoughPlayers):
		return "NotEnoughPlayers"
	case errors.Is(err, speed.ErrGameNotStarted):
		return "GameNotStarted"
	case errors.Is(err, speed.ErrGameOver):
		return "GameAlreadyOver"
	default:
		return "Internal"
	}
}
