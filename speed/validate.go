package speed

import "speed-lite/card"

// Validate checks a play proposal against a point-in-time snapshot of the
// pile tops and the proposer's hand. It is pure and side-effect free, so the
// human proposal path and the bot loop may both call it without
// synchronization.
//
// Rules, in order:
//  1. the referenced card must be in the proposing player's hand,
//  2. the card's rank must be cyclically adjacent to the target pile's top.
//
// When adjacency fails but the proposal was formed against a pile top that
// has since changed, the proposal lost a race rather than being wrong on its
// own terms, and the rejection is ErrStaleTarget.
func Validate(m Move, tops [NumPiles]card.Card, hand []card.Card) error {
	if m.Pile < 0 || m.Pile >= NumPiles {
		return ErrPileNotAdjacent
	}
	inHand := false
	for _, c := range hand {
		if c == m.Card {
			inHand = true
			break
		}
	}
	if !inHand {
		return ErrCardNotInHand
	}
	top := tops[m.Pile]
	if m.Card.AdjacentTo(top) {
		return nil
	}
	if m.SeenTop != card.CardInvalid && m.SeenTop != top {
		return ErrStaleTarget
	}
	return ErrPileNotAdjacent
}
