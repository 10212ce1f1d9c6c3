package speed

import "speed-lite/card"

// Phase 房间阶段
type Phase byte

const (
	PhaseWaiting    Phase = 0
	PhaseInProgress Phase = 1
	PhaseFinished   Phase = 2
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:    "waiting",
	PhaseInProgress: "inprogress",
	PhaseFinished:   "finished",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return "unknown"
}

const (
	NumPlayers = 2
	NumPiles   = 2

	// InvalidSeat marks "no seat": spectators, no winner yet.
	InvalidSeat = -1
)

// SpeedCards is the full 52-card deck dealt once per game.
var SpeedCards = []card.Card{
	card.CardSpadeA, card.CardSpade2, card.CardSpade3, card.CardSpade4, card.CardSpade5, card.CardSpade6,
	card.CardSpade7, card.CardSpade8, card.CardSpade9, card.CardSpadeT, card.CardSpadeJ, card.CardSpadeQ, card.CardSpadeK,
	card.CardHeartA, card.CardHeart2, card.CardHeart3, card.CardHeart4, card.CardHeart5, card.CardHeart6,
	card.CardHeart7, card.CardHeart8, card.CardHeart9, card.CardHeartT, card.CardHeartJ, card.CardHeartQ, card.CardHeartK,
	card.CardClubA, card.CardClub2, card.CardClub3, card.CardClub4, card.CardClub5, card.CardClub6,
	card.CardClub7, card.CardClub8, card.CardClub9, card.CardClubT, card.CardClubJ, card.CardClubQ, card.CardClubK,
	card.CardDiamondA, card.CardDiamond2, card.CardDiamond3, card.CardDiamond4, card.CardDiamond5, card.CardDiamond6,
	card.CardDiamond7, card.CardDiamond8, card.CardDiamond9, card.CardDiamondT, card.CardDiamondJ, card.CardDiamondQ, card.CardDiamondK,
}

// Move is a single play proposal. SeenTop carries the pile top the proposer
// last observed so a race loss can be told apart from a plain bad move.
type Move struct {
	Seat    int
	Card    card.Card
	Pile    int
	SeenTop card.Card
}

// CommitKind classifies an accepted, state-mutating step.
type CommitKind byte

const (
	CommitPlay CommitKind = iota + 1
	CommitPickup
	CommitTopUp
)

var CommitKindDictionary = map[CommitKind]string{
	CommitPlay:   "play",
	CommitPickup: "pickup",
	CommitTopUp:  "topup",
}

// Commit describes one committed step in the room's total order.
type Commit struct {
	Seq  uint64
	Kind CommitKind
	Seat int

	// Play fields
	Card    card.Card
	Pile    int
	PileTop card.Card

	// Pickup fields
	Picked card.Card

	// TopUp fields: new pile tops after the re-deal.
	NewTops [NumPiles]card.Card

	HandSize  int
	KittySize int

	// Set when this commit ended the game.
	Finished bool
	Winner   int
	LostBy   int
	Draw     bool
}
