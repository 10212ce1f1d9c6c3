package speed

import "speed-lite/card"

type PlayerSnapshot struct {
	ID    string
	Name  string
	Seat  int
	Robot bool

	// Hands are open information in speed: both clients render both hands.
	Hand       []card.Card
	KittyCount int
}

type PileSnapshot struct {
	Top   card.Card
	Count int
}

type Snapshot struct {
	Phase Phase
	Seq   uint64

	Winner int
	LostBy int
	Draw   bool

	Players [NumPlayers]PlayerSnapshot
	Piles   [NumPiles]PileSnapshot
}

// Tops is a convenience projection of the current pile tops.
func (s Snapshot) Tops() [NumPiles]card.Card {
	var tops [NumPiles]card.Card
	for i, p := range s.Piles {
		tops[i] = p.Top
	}
	return tops
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		Phase:  g.phase,
		Seq:    g.commitSeq,
		Winner: g.winner,
		LostBy: g.lostBy,
		Draw:   g.draw,
	}
	for seat := 0; seat < NumPlayers; seat++ {
		p := g.players[seat]
		if p == nil {
			s.Players[seat] = PlayerSnapshot{Seat: seat}
			continue
		}
		s.Players[seat] = PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			Seat:       seat,
			Robot:      p.Robot,
			Hand:       append([]card.Card{}, p.hand...),
			KittyCount: p.KittySize(),
		}
	}
	for i := range g.piles {
		s.Piles[i] = PileSnapshot{Top: g.piles[i].Top(), Count: g.piles[i].Count()}
	}
	return s
}
