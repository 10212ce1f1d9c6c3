package card

import "math/rand"

// CardList is an ordered stack of cards. The last element is the top.
type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

func (ds CardList) Count() int {
	return len(ds)
}

// Top returns the top of the stack without removing it.
func (ds CardList) Top() Card {
	if len(ds) == 0 {
		return CardInvalid
	}
	return ds[len(ds)-1]
}

func (ds CardList) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(ds), func(i, j int) {
		ds[i], ds[j] = ds[j], ds[i]
	})
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

func (ds *CardList) PopCard() Card {
	totalCount := ds.Count()
	if totalCount == 0 {
		return CardInvalid
	}
	card := (*ds)[totalCount-1]
	*ds = (*ds)[:totalCount-1]
	return card
}

func (ds *CardList) PopCards(size int) ([]Card, bool) {
	if size > ds.Count() {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards, true
}

// Remove deletes the first occurrence of c, preserving order.
func (ds *CardList) Remove(c Card) bool {
	for i, cur := range *ds {
		if cur == c {
			*ds = append((*ds)[:i], (*ds)[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether c is in the list.
func (ds CardList) Contains(c Card) bool {
	for _, cur := range ds {
		if cur == c {
			return true
		}
	}
	return false
}
