package card

import (
	"fmt"
	"strings"
)

// Card is a single playing card.
//
// Encoding:
// - high 4 bits: suit (0:Spade, 1:Heart, 2:Club, 3:Diamond)
// - low 4 bits: rank (1:A, 2..9, 10:T, 11:J, 12:Q, 13:K)
//
// The byte value doubles as the card's identity on the wire: every card in a
// deck has a distinct encoding.
type Card byte

func (c Card) String() string {
	if c == CardInvalid {
		return "Invalid"
	}
	return fmt.Sprintf("%s%s", c.Suit(), RankString(c.Rank()))
}

// Rank 1-13 (A=1, K=13).
func (c Card) Rank() byte {
	if c == CardInvalid {
		return 0
	}
	return byte(c & 0x0F)
}

func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

// AdjacentTo reports whether c may be played onto a pile whose top is o.
// Ranks form a 13-cycle: one step in either direction counts, and the cycle
// wraps between ace and king.
func (c Card) AdjacentTo(o Card) bool {
	if c == CardInvalid || o == CardInvalid {
		return false
	}
	return RanksAdjacent(c.Rank(), o.Rank())
}

// RanksAdjacent is the cyclic adjacency check on raw ranks (1..13).
func RanksAdjacent(a, b byte) bool {
	if a == 0 || b == 0 {
		return false
	}
	if a > b {
		a, b = b, a
	}
	return b-a == 1 || (a == 1 && b == 13)
}

// RankString renders a rank 1-13 as A,2..9,T,J,Q,K.
func RankString(rank byte) string {
	switch rank {
	case 1:
		return "A"
	case 10:
		return "T"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

// ParseRank converts a rank token ("a", "7", "10", "t", "J"...) to 1..13.
func ParseRank(s string) (byte, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "1":
		return 1, nil
	case "2":
		return 2, nil
	case "3":
		return 3, nil
	case "4":
		return 4, nil
	case "5":
		return 5, nil
	case "6":
		return 6, nil
	case "7":
		return 7, nil
	case "8":
		return 8, nil
	case "9":
		return 9, nil
	case "T", "10":
		return 10, nil
	case "J", "11":
		return 11, nil
	case "Q", "12":
		return 12, nil
	case "K", "13":
		return 13, nil
	default:
		return 0, fmt.Errorf("invalid rank: %s", s)
	}
}
