package card

type Suit byte

const (
	Spade Suit = iota
	Heart
	Club
	Diamond
)

func (s Suit) String() string {
	switch s {
	case Spade:
		return "♠"
	case Heart:
		return "♥"
	case Club:
		return "♣"
	case Diamond:
		return "♦"
	}
	return "?"
}

// Letter is the one-character suit code used by the CLI and the wire format.
func (s Suit) Letter() string {
	switch s {
	case Spade:
		return "s"
	case Heart:
		return "h"
	case Club:
		return "c"
	case Diamond:
		return "d"
	}
	return "?"
}
