package bot

import (
	"math/rand"

	"speed-lite/card"
	"speed-lite/speed"
)

// View is the read-only projection of the game the picker sees: the bot's
// own hand and the current pile tops, captured at decision time.
type View struct {
	Hand         []card.Card
	Tops         [speed.NumPiles]card.Card
	OpponentHand []card.Card
	KittyCount   int
}

// Candidate is one playable card/pile pairing.
type Candidate struct {
	Card card.Card
	Pile int
}

// MovePicker is the tunable move-selection policy. Heuristic quality lives
// behind this interface; timing lives in the Agent.
type MovePicker interface {
	// ChooseMove returns the picked move and true, or false when no valid
	// move exists in the view.
	ChooseMove(v View) (Candidate, bool)
	Name() string
}

// PickerFor maps a difficulty tier onto a policy: lower tiers play a
// uniformly random valid move, higher tiers use the chain/deny heuristic.
func PickerFor(d Difficulty, rng *rand.Rand) MovePicker {
	switch d {
	case Hard, Impossible:
		return &GreedyPicker{rng: rng}
	default:
		return &RandomPicker{rng: rng}
	}
}

func candidates(v View) []Candidate {
	var out []Candidate
	for _, c := range v.Hand {
		for pile := 0; pile < speed.NumPiles; pile++ {
			if c.AdjacentTo(v.Tops[pile]) {
				out = append(out, Candidate{Card: c, Pile: pile})
			}
		}
	}
	return out
}

// RandomPicker plays any valid move with uniform probability.
type RandomPicker struct {
	rng *rand.Rand
}

func (p *RandomPicker) Name() string { return "random" }

func (p *RandomPicker) ChooseMove(v View) (Candidate, bool) {
	cands := candidates(v)
	if len(cands) == 0 {
		return Candidate{}, false
	}
	return cands[p.rng.Intn(len(cands))], true
}

// GreedyPicker scores each valid move: it prefers moves that keep a
// follow-up chain in its own hand (emptying the hand sooner) and moves that
// take away a top the opponent could have played on.
type GreedyPicker struct {
	rng *rand.Rand
}

func (p *GreedyPicker) Name() string { return "greedy" }

func (p *GreedyPicker) ChooseMove(v View) (Candidate, bool) {
	cands := candidates(v)
	if len(cands) == 0 {
		return Candidate{}, false
	}

	best := cands[0]
	bestScore := -1 << 30
	for _, cand := range cands {
		score := p.score(v, cand)
		if score > bestScore || (score == bestScore && p.rng.Intn(2) == 0) {
			best, bestScore = cand, score
		}
	}
	return best, true
}

func (p *GreedyPicker) score(v View, cand Candidate) int {
	score := 0
	for _, c := range v.Hand {
		if c == cand.Card {
			continue
		}
		// A remaining card adjacent to the new top is a ready follow-up.
		if c.AdjacentTo(cand.Card) {
			score += 2
		}
	}
	for _, c := range v.OpponentHand {
		// Playing over a top the opponent could use denies that play.
		if c.AdjacentTo(v.Tops[cand.Pile]) && !c.AdjacentTo(cand.Card) {
			score++
		}
	}
	return score
}
