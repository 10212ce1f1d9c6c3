package speed

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"speed-lite/card"
)

// Game is the authoritative engine for one room: it owns both hands, both
// kitties and both center piles, and serializes every proposal through a
// single writer. Commits are numbered with a per-game sequence; that
// sequence is the room's total order.
type Game struct {
	cfg Config
	rng *rand.Rand

	mu sync.Mutex

	phase   Phase
	players [NumPlayers]*Player
	piles   [NumPiles]card.CardList

	commitSeq  uint64
	totalCards int

	winner int
	lostBy int
	draw   bool
}

func NewGame(cfg Config) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Game{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		phase:  PhaseWaiting,
		winner: InvalidSeat,
	}, nil
}

// Seat places a player at a seat before the deal.
func (g *Game) Seat(seat int, id, name string, robot bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseWaiting {
		return ErrGameOver
	}
	if seat < 0 || seat >= NumPlayers {
		return fmt.Errorf("invalid seat %d", seat)
	}
	if g.players[seat] != nil {
		return ErrSeatOccupied
	}
	g.players[seat] = &Player{ID: id, Name: name, Seat: seat, Robot: robot}
	return nil
}

// Unseat frees a seat. Only legal before the deal.
func (g *Game) Unseat(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseWaiting {
		return ErrGameOver
	}
	if seat < 0 || seat >= NumPlayers {
		return fmt.Errorf("invalid seat %d", seat)
	}
	g.players[seat] = nil
	return nil
}

// Start performs the deal and moves the game to InProgress: shuffle, split
// the deck in half, 5 cards to each hand, the remainder to each kitty, and
// one card from the top of each kitty seeding its center pile.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.phase {
	case PhaseInProgress:
		return fmt.Errorf("game already started")
	case PhaseFinished:
		return ErrGameOver
	}
	for seat := 0; seat < NumPlayers; seat++ {
		if g.players[seat] == nil {
			return ErrNotEnoughPlayers
		}
	}

	var stock card.CardList
	stock.Init(SpeedCards)
	stock.Shuffle(g.rng)

	half := len(SpeedCards) / NumPlayers
	for seat := 0; seat < NumPlayers; seat++ {
		p := g.players[seat]
		p.resetForDeal()

		side, ok := stock.PopCards(half)
		if !ok {
			return ErrInvalidState("deck underflow during deal")
		}
		var kitty card.CardList
		kitty.Init(side)

		hand, ok := kitty.PopCards(g.cfg.HandSize)
		if !ok {
			return ErrInvalidState("kitty underflow during deal")
		}
		p.hand.Init(hand)
		p.kitty = kitty

		g.piles[seat] = nil
		g.piles[seat].Add(p.kitty.PopCard())
	}

	g.totalCards = len(SpeedCards)
	g.phase = PhaseInProgress
	return g.checkConservationLocked("deal")
}

// PlayCard is the arbiter commit path for one proposal. The first proposal
// to pass validation against the current pile tops commits; a proposal
// formed against a top that has since moved is rejected with ErrStaleTarget.
func (g *Game) PlayCard(m Move) (Commit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.phaseGateLocked(); err != nil {
		return Commit{}, err
	}
	if m.Seat < 0 || m.Seat >= NumPlayers || g.players[m.Seat] == nil {
		return Commit{}, ErrNotSeatedPlayer
	}
	p := g.players[m.Seat]

	if err := Validate(m, g.topsLocked(), p.hand); err != nil {
		return Commit{}, err
	}

	if !p.hand.Remove(m.Card) {
		return Commit{}, ErrInvalidState("validated card vanished from hand")
	}
	g.piles[m.Pile].Add(m.Card)
	g.commitSeq++

	c := Commit{
		Seq:       g.commitSeq,
		Kind:      CommitPlay,
		Seat:      m.Seat,
		Card:      m.Card,
		Pile:      m.Pile,
		PileTop:   m.Card,
		HandSize:  p.HandSize(),
		KittySize: p.KittySize(),
	}

	if p.CardsLeft() == 0 {
		g.finishLocked(m.Seat)
		c.Finished = true
		c.Winner = g.winner
		c.LostBy = g.lostBy
	}

	if err := g.checkConservationLocked("play"); err != nil {
		return Commit{}, err
	}
	return c, nil
}

// Pickup moves the top kitty card into the requesting player's hand. It is
// validated independently of pile adjacency.
func (g *Game) Pickup(seat int) (Commit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.phaseGateLocked(); err != nil {
		return Commit{}, err
	}
	if seat < 0 || seat >= NumPlayers || g.players[seat] == nil {
		return Commit{}, ErrNotSeatedPlayer
	}
	p := g.players[seat]

	if p.HandSize() >= g.cfg.HandSize {
		return Commit{}, ErrHandFull
	}
	if p.KittySize() == 0 {
		return Commit{}, ErrKittyEmpty
	}

	picked := p.kitty.PopCard()
	p.hand.Add(picked)
	g.commitSeq++

	c := Commit{
		Seq:       g.commitSeq,
		Kind:      CommitPickup,
		Seat:      seat,
		Picked:    picked,
		HandSize:  p.HandSize(),
		KittySize: p.KittySize(),
	}
	if err := g.checkConservationLocked("pickup"); err != nil {
		return Commit{}, err
	}
	return c, nil
}

// TopUp resolves the "nobody can move" deadlock: when neither hand holds a
// playable card and drawing from the kitties (bounded lookahead) would not
// produce one, a card is flipped from each player's kitty onto each pile to
// become the new tops. The buried pile cards stay where they are; they are
// never reshuffled back into any pool.
//
// TopUp reports false without error when moves are still available, so it is
// safe to call after every commit or rejection. When both kitties are
// exhausted and no move exists the game cannot progress and ends: the side
// with fewer remaining cards wins, equal counts is a draw.
func (g *Game) TopUp() (Commit, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.phaseGateLocked(); err != nil {
		return Commit{}, false, err
	}
	if g.movesAvailableLocked() {
		return Commit{}, false, nil
	}

	bothEmpty := true
	for seat := 0; seat < NumPlayers; seat++ {
		if g.players[seat].KittySize() > 0 {
			bothEmpty = false
		}
	}

	g.commitSeq++
	c := Commit{
		Seq:  g.commitSeq,
		Kind: CommitTopUp,
		Seat: InvalidSeat,
	}

	if bothEmpty {
		// 双方牌堆耗尽且无子可动：按剩余牌数定胜负
		left0 := g.players[0].CardsLeft()
		left1 := g.players[1].CardsLeft()
		switch {
		case left0 < left1:
			g.finishLocked(0)
		case left1 < left0:
			g.finishLocked(1)
		default:
			g.phase = PhaseFinished
			g.draw = true
		}
		c.NewTops = g.topsLocked()
		c.Finished = true
		c.Winner = g.winner
		c.LostBy = g.lostBy
		c.Draw = g.draw
		return c, true, nil
	}

	for pile := 0; pile < NumPiles; pile++ {
		src := g.players[pile]
		if src.KittySize() == 0 {
			src = g.players[(pile+1)%NumPlayers]
		}
		if src.KittySize() == 0 {
			continue
		}
		g.piles[pile].Add(src.kitty.PopCard())
	}
	c.NewTops = g.topsLocked()

	if err := g.checkConservationLocked("topup"); err != nil {
		return Commit{}, false, err
	}
	return c, true, nil
}

func (g *Game) phaseGateLocked() error {
	switch g.phase {
	case PhaseWaiting:
		return ErrGameNotStarted
	case PhaseFinished:
		return ErrGameOver
	}
	return nil
}

func (g *Game) finishLocked(winner int) {
	g.phase = PhaseFinished
	g.winner = winner
	g.lostBy = g.players[(winner+1)%NumPlayers].CardsLeft()
}

func (g *Game) topsLocked() [NumPiles]card.Card {
	var tops [NumPiles]card.Card
	for i := range g.piles {
		tops[i] = g.piles[i].Top()
	}
	return tops
}

// movesAvailableLocked reports whether either player can act: a hand card
// adjacent to a pile top, or a drawable kitty card (within the lookahead
// bound) that would be.
func (g *Game) movesAvailableLocked() bool {
	tops := g.topsLocked()
	for seat := 0; seat < NumPlayers; seat++ {
		p := g.players[seat]
		for _, c := range p.hand {
			if c.AdjacentTo(tops[0]) || c.AdjacentTo(tops[1]) {
				return true
			}
		}

		room := g.cfg.HandSize - p.HandSize()
		if room <= 0 || p.KittySize() == 0 {
			continue
		}
		if g.cfg.TopUpLookahead > 0 && room > g.cfg.TopUpLookahead {
			room = g.cfg.TopUpLookahead
		}
		if room > p.KittySize() {
			room = p.KittySize()
		}
		// PopCard draws from the tail, so peek the tail.
		for i := 0; i < room; i++ {
			c := p.kitty[p.kitty.Count()-1-i]
			if c.AdjacentTo(tops[0]) || c.AdjacentTo(tops[1]) {
				return true
			}
		}
	}
	return false
}

// checkConservationLocked enforces the card-count invariant after every
// mutation. A mismatch means corrupted state; the caller must abort the room.
func (g *Game) checkConservationLocked(op string) error {
	if g.phase == PhaseWaiting {
		return nil
	}
	sum := 0
	for seat := 0; seat < NumPlayers; seat++ {
		if p := g.players[seat]; p != nil {
			sum += p.CardsLeft()
		}
	}
	for i := range g.piles {
		sum += g.piles[i].Count()
	}
	if sum != g.totalCards {
		return ErrInvalidState(fmt.Sprintf("card count %d != %d after %s", sum, g.totalCards, op))
	}
	return nil
}
