package speed

import (
	"errors"
	"testing"

	"speed-lite/card"
)

func TestValidateScenario(t *testing.T) {
	// Piles showing a 7 and a J; hand holds 8, 6, Q, T, 2.
	tops := [NumPiles]card.Card{card.CardHeart7, card.CardClubJ}
	hand := []card.Card{card.CardSpade8, card.CardSpade6, card.CardHeartQ, card.CardDiamondT, card.CardClub2}

	cases := []struct {
		name string
		move Move
		want error
	}{
		{"eight onto seven commits", Move{Card: card.CardSpade8, Pile: 0}, nil},
		{"six onto seven commits", Move{Card: card.CardSpade6, Pile: 0}, nil},
		{"queen onto jack commits", Move{Card: card.CardHeartQ, Pile: 1}, nil},
		{"ten onto jack commits", Move{Card: card.CardDiamondT, Pile: 1}, nil},
		{"two onto seven rejected", Move{Card: card.CardClub2, Pile: 0}, ErrPileNotAdjacent},
		{"two onto jack rejected", Move{Card: card.CardClub2, Pile: 1}, ErrPileNotAdjacent},
		{"card not in hand", Move{Card: card.CardDiamond9, Pile: 0}, ErrCardNotInHand},
		{"bad pile index", Move{Card: card.CardSpade8, Pile: 2}, ErrPileNotAdjacent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate(tc.move, tops, hand); !errors.Is(got, tc.want) && got != tc.want {
				t.Fatalf("Validate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateWraparound(t *testing.T) {
	// Ace plays on a king and a two; king and two play on an ace.
	tops := [NumPiles]card.Card{card.CardSpadeK, card.CardHeartA}
	hand := []card.Card{card.CardClubA, card.CardDiamondK, card.CardDiamond2}

	if err := Validate(Move{Card: card.CardClubA, Pile: 0}, tops, hand); err != nil {
		t.Errorf("ace onto king: %v", err)
	}
	if err := Validate(Move{Card: card.CardDiamondK, Pile: 1}, tops, hand); err != nil {
		t.Errorf("king onto ace: %v", err)
	}
	if err := Validate(Move{Card: card.CardDiamond2, Pile: 1}, tops, hand); err != nil {
		t.Errorf("two onto ace: %v", err)
	}
	if err := Validate(Move{Card: card.CardDiamond2, Pile: 0}, tops, hand); !errors.Is(err, ErrPileNotAdjacent) {
		t.Errorf("two onto king = %v, want ErrPileNotAdjacent", err)
	}
}

func TestValidateAllRankPairs(t *testing.T) {
	for r := byte(1); r <= 13; r++ {
		top := card.Card(r) // spade of rank r
		for h := byte(1); h <= 13; h++ {
			held := card.Card(0x10 + h) // heart of rank h
			tops := [NumPiles]card.Card{top, top}
			err := Validate(Move{Card: held, Pile: 0}, tops, []card.Card{held})
			if card.RanksAdjacent(h, r) {
				if err != nil {
					t.Errorf("rank %d on %d: got %v, want commit", h, r, err)
				}
			} else if !errors.Is(err, ErrPileNotAdjacent) {
				t.Errorf("rank %d on %d: got %v, want ErrPileNotAdjacent", h, r, err)
			}
		}
	}
}

func TestValidateStaleTarget(t *testing.T) {
	tops := [NumPiles]card.Card{card.CardSpade8, card.CardClubJ}
	hand := []card.Card{card.CardSpade6}

	// Formed against a 7 that has since become an 8: race loss.
	m := Move{Card: card.CardSpade6, Pile: 0, SeenTop: card.CardHeart7}
	if err := Validate(m, tops, hand); !errors.Is(err, ErrStaleTarget) {
		t.Fatalf("Validate = %v, want ErrStaleTarget", err)
	}

	// Same bad move formed against the current top is simply not adjacent.
	m.SeenTop = card.CardSpade8
	if err := Validate(m, tops, hand); !errors.Is(err, ErrPileNotAdjacent) {
		t.Fatalf("Validate = %v, want ErrPileNotAdjacent", err)
	}
}
