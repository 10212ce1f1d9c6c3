package bot

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty selects a bot tier.
type Difficulty byte

const (
	Easy Difficulty = iota
	Medium
	Hard
	Impossible
)

var difficultyDictionary = map[Difficulty]string{
	Easy:       "easy",
	Medium:     "medium",
	Hard:       "hard",
	Impossible: "impossible",
}

func (d Difficulty) String() string {
	if s, ok := difficultyDictionary[d]; ok {
		return s
	}
	return "unknown"
}

// ParseDifficulty accepts full names and the CLI's single-letter shorthands.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "e", "easy":
		return Easy, nil
	case "m", "medium":
		return Medium, nil
	case "h", "hard":
		return Hard, nil
	case "i", "impossible":
		return Impossible, nil
	default:
		return Medium, fmt.Errorf("unknown difficulty %q", s)
	}
}

// Profile is the static, per-difficulty configuration of a bot opponent.
// Profiles are read-only; agents copy them at spawn and never write back.
type Profile struct {
	Difficulty Difficulty
	Name       string

	Intro    string
	WinText  string // shown when the player beats this bot
	LoseText string // shown when the player loses to it

	MinDelay       time.Duration
	MaxDelay       time.Duration
	PickupInterval time.Duration
}

var profiles = map[Difficulty]Profile{
	Easy: {
		Difficulty:     Easy,
		Name:           "Limping Liam",
		Intro:          "He can't jump far",
		WinText:        "Easy",
		LoseText:       "Oh no",
		MinDelay:       3000 * time.Millisecond,
		MaxDelay:       5000 * time.Millisecond,
		PickupInterval: 2500 * time.Millisecond,
	},
	Medium: {
		Difficulty:     Medium,
		Name:           "Harrowing Hayden",
		Intro:          "He's a bit of a trickster so watch out",
		WinText:        "Down goes the trickster",
		LoseText:       "Damn, he's tricky",
		MinDelay:       2000 * time.Millisecond,
		MaxDelay:       3000 * time.Millisecond,
		PickupInterval: 1500 * time.Millisecond,
	},
	Hard: {
		Difficulty:     Hard,
		Name:           "Masterful Mikaela",
		Intro:          "She can't be trusted",
		WinText:        "Down falls Mikaela and her wicked ways",
		LoseText:       "Oof, rough one",
		MinDelay:       1000 * time.Millisecond,
		MaxDelay:       3000 * time.Millisecond,
		PickupInterval: 1000 * time.Millisecond,
	},
	Impossible: {
		Difficulty:     Impossible,
		Name:           "Chaotic Kate",
		Intro:          "rip lol",
		WinText:        "No one will ever see this message so it doesn't matter",
		LoseText:       "No chance",
		MinDelay:       500 * time.Millisecond,
		MaxDelay:       2000 * time.Millisecond,
		PickupInterval: 500 * time.Millisecond,
	},
}

// ProfileFor looks up the static profile for a difficulty.
func ProfileFor(d Difficulty) Profile {
	p, ok := profiles[d]
	if !ok {
		return profiles[Medium]
	}
	return p
}
