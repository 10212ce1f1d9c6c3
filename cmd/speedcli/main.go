// speedcli plays a match against a bot in the terminal. It drives the same
// engine and bot agent as the server, just without the network in between.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"speed-lite/card"
	"speed-lite/speed"
	"speed-lite/speed/bot"
)

const humanSeat = 0
const botSeat = 1

// Renderer draws the board; the cli never touches the terminal directly.
type Renderer interface {
	Render(snap speed.Snapshot, message string)
	RenderFinal(snap speed.Snapshot, commit speed.Commit, profile bot.Profile)
}

type cli struct {
	game    *speed.Game
	profile bot.Profile
	ui      Renderer
	done    chan struct{}
	once    sync.Once
}

// terminalRenderer redraws the whole board, bot on top, you below.
type terminalRenderer struct {
	mu  sync.Mutex
	out *bufio.Writer
}

func (t *terminalRenderer) Render(snap speed.Snapshot, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, "\033[2J\033[H")
	b := snap.Players[botSeat]
	fmt.Fprintf(t.out, "%s:  %s     Kitty count: %d\n", b.Name, handString(b.Hand), b.KittyCount)
	fmt.Fprintf(t.out, "\n        %s %s\n\n", cardString(snap.Piles[0].Top), cardString(snap.Piles[1].Top))
	p := snap.Players[humanSeat]
	fmt.Fprintf(t.out, "%s:  %s     Kitty count: %d\n\n", p.Name, handString(p.Hand), p.KittyCount)
	if message != "" {
		fmt.Fprintln(t.out, message)
	}
	t.out.Flush()
}

func (t *terminalRenderer) RenderFinal(snap speed.Snapshot, commit speed.Commit, profile bot.Profile) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out)
	switch {
	case commit.Draw:
		fmt.Fprintln(t.out, "It's a draw. Neither of you could move.")
	case commit.Winner == humanSeat:
		fmt.Fprintf(t.out, "You win! %s still had %d cards left.\n", snap.Players[botSeat].Name, commit.LostBy)
		fmt.Fprintln(t.out, profile.WinText)
	default:
		fmt.Fprintf(t.out, "%s wins. You had %d cards left.\n", snap.Players[botSeat].Name, commit.LostBy)
		fmt.Fprintln(t.out, profile.LoseText)
	}
	t.out.Flush()
}

func main() {
	reader := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	skipIntro := len(os.Args) > 1 && os.Args[1] == "--skip-intro"
	difficulty := gameIntro(reader, out, skipIntro)
	profile := bot.ProfileFor(difficulty)

	game, err := speed.NewGame(speed.DefaultConfig())
	if err != nil {
		log.Fatalf("create game: %v", err)
	}
	if err := game.Seat(humanSeat, "you", "You", false); err != nil {
		log.Fatalf("seat player: %v", err)
	}
	if err := game.Seat(botSeat, "bot", profile.Name, true); err != nil {
		log.Fatalf("seat bot: %v", err)
	}
	if err := game.Start(); err != nil {
		log.Fatalf("start game: %v", err)
	}

	c := &cli{
		game:    game,
		profile: profile,
		ui:      &terminalRenderer{out: out},
		done:    make(chan struct{}),
	}

	agent := bot.NewAgent(profile, botSeat, c, 0)
	agent.Start()
	defer agent.Stop()

	c.render("Your move. Play with '<card> <pile top>', pickup with 'k', top up with 't'.")
	c.inputLoop(reader)
}

// --- bot.Proposer: the agent submits straight into the engine and we
// redraw on every accepted commit ---

func (c *cli) SubmitMove(m speed.Move) error {
	commit, err := c.game.PlayCard(m)
	if err != nil {
		c.afterReject()
		return err
	}
	c.afterCommit(commit, fmt.Sprintf("%s played %s.", c.profile.Name, commit.Card))
	return nil
}

func (c *cli) SubmitPickup(seat int) error {
	commit, err := c.game.Pickup(seat)
	if err != nil {
		c.afterReject()
		return err
	}
	c.afterCommit(commit, fmt.Sprintf("%s picked up from their kitty.", c.profile.Name))
	return nil
}

func (c *cli) GameSnapshot() speed.Snapshot {
	return c.game.Snapshot()
}

func (c *cli) inputLoop(reader *bufio.Reader) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input := strings.ToLower(strings.TrimSpace(line))

		switch {
		case input == "":
			c.render("")
		case input == "q":
			return
		case input == "k":
			commit, err := c.game.Pickup(humanSeat)
			if err != nil {
				c.renderError(err)
				continue
			}
			c.afterCommit(commit, fmt.Sprintf("You picked up a %s.", commit.Picked))
		case input == "t":
			c.requestTopUp()
		default:
			c.playFromInput(input)
		}

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// playFromInput handles "<card> <pile top>", e.g. "7 6" plays your 7 onto
// the pile showing a 6.
func (c *cli) playFromInput(input string) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		c.render("Enter a card and a pile top, like '7 6'. 'k' picks up, 't' tops up, 'q' quits.")
		return
	}

	rank, err := card.ParseRank(fields[0])
	if err != nil {
		c.render(fmt.Sprintf("Unknown card %q.", fields[0]))
		return
	}
	target, err := card.ParseRank(fields[1])
	if err != nil {
		c.render(fmt.Sprintf("Unknown pile top %q.", fields[1]))
		return
	}

	snap := c.game.Snapshot()
	hand := snap.Players[humanSeat].Hand
	var chosen card.Card
	for _, hc := range hand {
		if hc.Rank() == rank {
			chosen = hc
			break
		}
	}
	if chosen == card.CardInvalid {
		c.render(fmt.Sprintf("No %s in your hand.", card.RankString(rank)))
		return
	}

	pile := -1
	tops := snap.Tops()
	for i, top := range tops {
		if top.Rank() == target {
			pile = i
			break
		}
	}
	if pile < 0 {
		c.render(fmt.Sprintf("No pile shows a %s.", card.RankString(target)))
		return
	}

	commit, err := c.game.PlayCard(speed.Move{
		Seat:    humanSeat,
		Card:    chosen,
		Pile:    pile,
		SeenTop: tops[pile],
	})
	if err != nil {
		c.renderError(err)
		return
	}
	c.afterCommit(commit, fmt.Sprintf("You played %s.", commit.Card))
}

func (c *cli) requestTopUp() {
	commit, applied, err := c.game.TopUp()
	if err != nil {
		c.renderError(err)
		return
	}
	if !applied {
		c.render("No top up needed, there are still moves to make.")
		return
	}
	if commit.Finished {
		c.finish(commit)
		return
	}
	c.render("Center piles topped up.")
}

func (c *cli) afterCommit(commit speed.Commit, message string) {
	if commit.Finished {
		c.finish(commit)
		return
	}
	// A commit can bury the last playable rank; break the deadlock eagerly
	// so neither side waits on a 't' that the bot will never type.
	if redeal, applied, err := c.game.TopUp(); err == nil && applied {
		if redeal.Finished {
			c.finish(redeal)
			return
		}
		message += " Center piles topped up."
	}
	c.render(message)
}

func (c *cli) afterReject() {
	if redeal, applied, err := c.game.TopUp(); err == nil && applied && redeal.Finished {
		c.finish(redeal)
	}
}

func (c *cli) renderError(err error) {
	switch {
	case errors.Is(err, speed.ErrPileNotAdjacent), errors.Is(err, speed.ErrStaleTarget):
		c.render("That card can't go there.")
	case errors.Is(err, speed.ErrHandFull):
		c.render("Your hand is full.")
	case errors.Is(err, speed.ErrKittyEmpty):
		c.render("Your kitty is empty.")
	case errors.Is(err, speed.ErrCardNotInHand):
		c.render("That card is not in your hand.")
	case errors.Is(err, speed.ErrGameOver):
		// finish already rendered
	default:
		c.render(err.Error())
	}
}

func (c *cli) render(message string) {
	c.ui.Render(c.game.Snapshot(), message)
}

func (c *cli) finish(commit speed.Commit) {
	c.once.Do(func() {
		c.renderFinal(commit)
		close(c.done)
		// The input loop may be blocked on stdin.
		os.Exit(0)
	})
}

func (c *cli) renderFinal(commit speed.Commit) {
	c.ui.RenderFinal(c.game.Snapshot(), commit, c.profile)
}

func handString(cards []card.Card) string {
	parts := make([]string, len(cards))
	for i, hc := range cards {
		parts[i] = cardString(hc)
	}
	return strings.Join(parts, " ")
}

func cardString(c card.Card) string {
	if c == card.CardInvalid {
		return "--"
	}
	return card.RankString(c.Rank()) + c.Suit().Letter()
}

func gameIntro(reader *bufio.Reader, out *bufio.Writer, skipIntro bool) bot.Difficulty {
	writeln := func(s string) {
		fmt.Fprintln(out, s)
		out.Flush()
	}

	if !skipIntro {
		writeln("------ Speed Card Game ------")
		writeln("Welcome to the speed card game cli version")
		writeln("")
		writeln("Would you like to hear the rules? (y/n)")
		if answer, _ := reader.ReadString('\n'); strings.TrimSpace(answer) == "y" {
			writeln("------ Instructions -----")
			writeln("The goal of this game is to get rid of all your cards before your opponent.")
			writeln("To get rid of cards you can play them onto the center piles if it's 1 above or below the other card.")
			writeln("Also, an ace can be played onto a 2 or a king, and vice versa.")
			writeln("You can pickup cards from your kitty with 'k' if you have less than 5 cards in your hand.")
			writeln("If you can't make any moves, request a top up of the center piles with 't'")
			writeln("To play a card in your hand, enter its value followed by the card to play it on.")
			writeln("For example to play a 7 onto a 6 in the center pile use '7 6'")
			writeln("")
		}
	}

	writeln("------ Difficulty ------")
	writeln("What difficulty opponent will you face?")
	writeln("(e)asy, (m)edium, (h)ard, (i)mpossible")
	answer, _ := reader.ReadString('\n')
	difficulty, err := bot.ParseDifficulty(strings.TrimSpace(answer))
	if err != nil {
		difficulty = bot.Medium
	}

	profile := bot.ProfileFor(difficulty)
	writeln("------ Game initialised ------")
	writeln("Your opponent is: " + profile.Name)
	writeln(profile.Intro)
	writeln("")
	writeln("Press enter to start the match!")
	_, _ = reader.ReadString('\n')
	return difficulty
}
