package card

import (
	"math/rand"
	"testing"
)

func TestRanksAdjacentCycle(t *testing.T) {
	for r := byte(1); r <= 13; r++ {
		up := r%13 + 1
		down := (r+11)%13 + 1
		for other := byte(1); other <= 13; other++ {
			want := other == up || other == down
			if got := RanksAdjacent(r, other); got != want {
				t.Errorf("RanksAdjacent(%d,%d) = %v, want %v", r, other, got, want)
			}
		}
	}
}

func TestRanksAdjacentWrap(t *testing.T) {
	if !RanksAdjacent(1, 13) {
		t.Error("ace and king must be adjacent")
	}
	if !RanksAdjacent(13, 1) {
		t.Error("king and ace must be adjacent")
	}
	if RanksAdjacent(1, 12) {
		t.Error("ace and queen must not be adjacent")
	}
	if RanksAdjacent(0, 1) {
		t.Error("invalid rank must never be adjacent")
	}
}

func TestAdjacentToIgnoresSuit(t *testing.T) {
	if !CardSpade7.AdjacentTo(CardHeart8) {
		t.Error("7s should play on 8h")
	}
	if !CardDiamondA.AdjacentTo(CardClubK) {
		t.Error("Ad should play on Kc")
	}
	if CardSpade7.AdjacentTo(CardSpade9) {
		t.Error("7s should not play on 9s")
	}
	if CardSpade7.AdjacentTo(CardInvalid) {
		t.Error("nothing plays on an invalid card")
	}
}

func TestParseRankRoundTrip(t *testing.T) {
	for r := byte(1); r <= 13; r++ {
		got, err := ParseRank(RankString(r))
		if err != nil {
			t.Fatalf("ParseRank(%q): %v", RankString(r), err)
		}
		if got != r {
			t.Errorf("ParseRank(%q) = %d, want %d", RankString(r), got, r)
		}
	}
	if _, err := ParseRank("x"); err == nil {
		t.Error("ParseRank should reject garbage")
	}
}

func TestCardListStackOps(t *testing.T) {
	var ds CardList
	ds.Init([]Card{CardSpadeA, CardSpade2, CardSpade3})

	if top := ds.Top(); top != CardSpade3 {
		t.Fatalf("Top = %v, want %v", top, CardSpade3)
	}
	if got := ds.PopCard(); got != CardSpade3 {
		t.Fatalf("PopCard = %v, want %v", got, CardSpade3)
	}
	if !ds.Remove(CardSpadeA) {
		t.Fatal("Remove should find the ace")
	}
	if ds.Contains(CardSpadeA) {
		t.Fatal("ace should be gone after Remove")
	}
	if ds.Count() != 1 {
		t.Fatalf("Count = %d, want 1", ds.Count())
	}
	if got := (&CardList{}).PopCard(); got != CardInvalid {
		t.Fatalf("PopCard on empty = %v, want invalid", got)
	}
}

func TestShuffleKeepsAllCards(t *testing.T) {
	var ds CardList
	ds.Init([]Card{CardHeartA, CardHeart2, CardHeart3, CardHeart4, CardHeart5})
	ds.Shuffle(rand.New(rand.NewSource(7)))

	if ds.Count() != 5 {
		t.Fatalf("Count = %d after shuffle, want 5", ds.Count())
	}
	for _, c := range []Card{CardHeartA, CardHeart2, CardHeart3, CardHeart4, CardHeart5} {
		if !ds.Contains(c) {
			t.Errorf("shuffle lost %v", c)
		}
	}
}
