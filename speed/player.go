package speed

import "speed-lite/card"

// Player is one seated side of the game. Hands and kitties are mutated only
// by the Game under its lock.
type Player struct {
	ID    string
	Name  string
	Seat  int
	Robot bool

	hand  card.CardList
	kitty card.CardList
}

func (p *Player) HandSize() int  { return p.hand.Count() }
func (p *Player) KittySize() int { return p.kitty.Count() }

// CardsLeft is the player's total remaining cards (the "lost by" statistic
// for the losing side).
func (p *Player) CardsLeft() int {
	return p.hand.Count() + p.kitty.Count()
}

func (p *Player) resetForDeal() {
	p.hand = nil
	p.kitty = nil
}
