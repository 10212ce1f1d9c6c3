package bot

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"speed-lite/speed"
)

// Proposer is the submission path the agent shares with human clients. Both
// callbacks must route into the same per-room serialization point a human
// proposal uses; the agent has no privileged shortcut into the engine.
type Proposer interface {
	SubmitMove(m speed.Move) error
	SubmitPickup(seat int) error
	GameSnapshot() speed.Snapshot
}

// Agent is one timed opponent: an Idle→Thinking→Proposing loop whose delay
// is resampled uniformly from the profile's [MinDelay, MaxDelay] every
// cycle, plus an independent pickup ticker. Both stop immediately on Stop;
// an in-flight decision is discarded rather than submitted.
type Agent struct {
	profile  Profile
	picker   MovePicker
	seat     int
	proposer Proposer

	rng *rand.Rand

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAgent(profile Profile, seat int, proposer Proposer, seed int64) *Agent {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Agent{
		profile:  profile,
		picker:   PickerFor(profile.Difficulty, rng),
		seat:     seat,
		proposer: proposer,
		rng:      rng,
		done:     make(chan struct{}),
	}
}

func (a *Agent) Profile() Profile { return a.profile }
func (a *Agent) Seat() int        { return a.seat }

// Start launches the think loop and the pickup ticker.
func (a *Agent) Start() {
	a.wg.Add(2)
	go a.thinkLoop()
	go a.pickupLoop()
}

// Stop cancels both timers. It is safe to call more than once and blocks
// until the loops have exited, so no proposal is generated afterwards.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Agent) thinkLoop() {
	defer a.wg.Done()

	timer := time.NewTimer(a.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			a.act()
			timer.Reset(a.nextDelay())
		case <-a.done:
			return
		}
	}
}

func (a *Agent) pickupLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.profile.PickupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.tryPickup()
		case <-a.done:
			return
		}
	}
}

// nextDelay resamples the reaction time for one think cycle.
func (a *Agent) nextDelay() time.Duration {
	span := a.profile.MaxDelay - a.profile.MinDelay
	if span <= 0 {
		return a.profile.MinDelay
	}
	return a.profile.MinDelay + time.Duration(a.rng.Int63n(int64(span)))
}

// act snapshots the board, asks the policy for a move and submits it through
// the shared proposal path. No valid move means no action this cycle.
func (a *Agent) act() {
	select {
	case <-a.done:
		return
	default:
	}

	snap := a.proposer.GameSnapshot()
	if snap.Phase != speed.PhaseInProgress {
		return
	}

	view := View{
		Hand:         snap.Players[a.seat].Hand,
		Tops:         snap.Tops(),
		OpponentHand: snap.Players[(a.seat+1)%speed.NumPlayers].Hand,
		KittyCount:   snap.Players[a.seat].KittyCount,
	}
	cand, ok := a.picker.ChooseMove(view)
	if !ok {
		return
	}

	err := a.proposer.SubmitMove(speed.Move{
		Seat:    a.seat,
		Card:    cand.Card,
		Pile:    cand.Pile,
		SeenTop: view.Tops[cand.Pile],
	})
	if err != nil && !speed.IsFatal(err) {
		// Lost a race or the board moved; next cycle re-snapshots.
		log.Printf("[Bot %s] move rejected: %v", a.profile.Name, err)
	}
}

func (a *Agent) tryPickup() {
	select {
	case <-a.done:
		return
	default:
	}

	snap := a.proposer.GameSnapshot()
	if snap.Phase != speed.PhaseInProgress {
		return
	}
	me := snap.Players[a.seat]
	if len(me.Hand) >= speed.DefaultHandSize || me.KittyCount == 0 {
		return
	}
	if err := a.proposer.SubmitPickup(a.seat); err != nil && !speed.IsFatal(err) {
		log.Printf("[Bot %s] pickup rejected: %v", a.profile.Name, err)
	}
}
