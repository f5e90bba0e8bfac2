// roulettesrv runs the session engine with a set of simulated players, one
// full game from wager to payout. Useful for exercising the engine and the
// wallet end to end without a game client.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sixchambers/roulette/pkg/roulette"
	"github.com/sixchambers/roulette/pkg/server"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "roulettesrv: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	datadir := flag.String("datadir", "", "data directory (overrides ROULETTE_DATA_DIR)")
	debuglevel := flag.String("debuglevel", "", "log level (overrides ROULETTE_DEBUG_LEVEL)")
	players := flag.Int("players", 4, "number of simulated players")
	mode := flag.String("mode", "", "chamber-load mode (overrides ROULETTE_MODE)")
	bet := flag.Int64("bet", 0, "wager per player (overrides ROULETTE_BET_AMOUNT)")
	countdown := flag.Int("countdown", 3, "start countdown in seconds")
	turntime := flag.Int("turntime", 10, "per-turn clock in seconds")
	flag.Parse()

	// Optional .env next to the binary; flags still win.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	if *datadir != "" {
		cfg.DataDir = *datadir
	}
	if *debuglevel != "" {
		cfg.DebugLevel = *debuglevel
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *bet > 0 {
		cfg.BetAmount = *bet
	}
	cfg.StartCountdownSec = *countdown
	cfg.TurnTimeSec = *turntime

	if *players < cfg.MinPlayers {
		return fmt.Errorf("need at least %d players", cfg.MinPlayers)
	}

	srv, err := server.NewServer(cfg, nil)
	if err != nil {
		return err
	}
	defer srv.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// Fund the table and seat everyone.
	ids := make([]string, *players)
	for i := range ids {
		ids[i] = fmt.Sprintf("player-%d", i+1)
		if err := srv.Credit(ids[i], cfg.BetAmount*2); err != nil {
			return err
		}
	}

	sessionID, err := srv.CreateSession(ids[0], "Player 1")
	if err != nil {
		return err
	}
	for i, id := range ids[1:] {
		if err := srv.Join(id, fmt.Sprintf("Player %d", i+2), sessionID); err != nil {
			return err
		}
	}
	if err := srv.StartSession(sessionID); err != nil {
		return err
	}

	// Each player pulls as soon as their turn opens; a missed poll just
	// means the turn clock fires the revolver instead.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigs:
			fmt.Println("interrupted, ending all sessions")
			srv.ForceEndAll()
			return nil
		case <-ticker.C:
			turn, err := srv.CurrentTurn(sessionID)
			if errors.Is(err, roulette.ErrSessionNotFound) {
				// Session concluded and was purged.
				for _, id := range ids {
					balance, err := srv.Balance(id)
					if err != nil {
						return err
					}
					fmt.Printf("%s: %d\n", id, balance)
				}
				return nil
			}
			if err != nil {
				return err
			}
			if turn != "" {
				if _, err := srv.PullTrigger(turn); err != nil &&
					!errors.Is(err, roulette.ErrNotYourTurn) &&
					!errors.Is(err, roulette.ErrSessionNotActive) &&
					!errors.Is(err, roulette.ErrNotInSession) {
					return err
				}
			}
		}
	}
}
