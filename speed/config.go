package speed

import "fmt"

// DefaultHandSize is the standard speed hand cap.
const DefaultHandSize = 5

type Config struct {
	// HandSize is the per-player hand cap (default 5).
	HandSize int

	// TopUpLookahead bounds how many upcoming kitty cards count when the
	// deadlock detector decides whether drawing could unblock a player.
	// 0 means "up to hand capacity".
	TopUpLookahead int

	// RNG seed (0 => time-based)
	Seed int64
}

func (c Config) validate() error {
	if c.HandSize <= 0 {
		return fmt.Errorf("HandSize must be > 0")
	}
	if c.HandSize*NumPlayers+NumPiles > len(SpeedCards) {
		return fmt.Errorf("HandSize %d too large for a %d-card deck", c.HandSize, len(SpeedCards))
	}
	if c.TopUpLookahead < 0 {
		return fmt.Errorf("TopUpLookahead must be >= 0")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{HandSize: DefaultHandSize}
}
