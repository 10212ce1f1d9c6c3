package speed

import "errors"

// Rejection reasons. All of these are recoverable: they are reported to the
// proposing caller only and never terminate a room.
var (
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrPileNotAdjacent  = errors.New("card not adjacent to pile top")
	ErrStaleTarget      = errors.New("pile top changed before move arrived")
	ErrHandFull         = errors.New("hand already full")
	ErrKittyEmpty       = errors.New("kitty is empty")
	ErrNotSeatedPlayer  = errors.New("connection is not a seated player")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrGameNotStarted   = errors.New("game not started")
	ErrGameOver         = errors.New("game already over")
	ErrSeatOccupied     = errors.New("seat already occupied")
)

// InvalidStateError 表示内部不变量被破坏（致命，房间必须中止）
type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }

// IsFatal reports whether err is an internal invariant violation rather than
// an ordinary rejection.
func IsFatal(err error) bool {
	var ise InvalidStateError
	return errors.As(err, &ise)
}
