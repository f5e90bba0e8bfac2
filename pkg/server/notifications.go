package server

import (
	"github.com/decred/slog"

	"github.com/sixchambers/roulette/pkg/roulette"
)

// eventLoop drains the session event channel until shutdown. Sessions
// publish without blocking, so a slow consumer here can only ever drop
// events, never stall a turn.
func (s *Server) eventLoop() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-s.quit:
			return
		}
	}
}

func (s *Server) handleEvent(ev roulette.SessionEvent) {
	switch ev.Kind {
	case roulette.EventPlayerJoined:
		s.log.Infof("[%s] %v joined (%v/%v)", ev.SessionID,
			ev.Payload["player"], ev.Payload["players"], ev.Payload["max"])
	case roulette.EventPlayerLeft:
		s.log.Infof("[%s] %v left", ev.SessionID, ev.Payload["player"])
	case roulette.EventDisconnected:
		s.log.Infof("[%s] %v disconnected", ev.SessionID, ev.Payload["player"])
	case roulette.EventCountdownTick:
		s.log.Debugf("[%s] starting in %v", ev.SessionID, ev.Payload["time"])
	case roulette.EventSessionStarted:
		s.log.Infof("[%s] session started with %v players", ev.SessionID, ev.Payload["players"])
	case roulette.EventTurnStarted:
		s.log.Infof("[%s] %v's turn (%v bullets left)", ev.SessionID,
			ev.Payload["turn"], ev.Payload["bullets"])
	case roulette.EventTurnWarning:
		s.log.Debugf("[%s] turn expires in %v", ev.SessionID, ev.Payload["time"])
	case roulette.EventAutoTrigger:
		s.log.Infof("[%s] %v ran out of time, firing", ev.SessionID, ev.Payload["player"])
	case roulette.EventPlayerDied:
		s.log.Infof("[%s] %v is out", ev.SessionID, ev.Payload["player"])
	case roulette.EventPlayerSurvived:
		s.log.Infof("[%s] %v survived", ev.SessionID, ev.Payload["player"])
	case roulette.EventWinner:
		s.log.Infof("[%s] %v wins %v", ev.SessionID,
			ev.Payload["winner"], ev.Payload["payout"])
	case roulette.EventPotRefunded:
		s.log.Infof("[%s] pot refunded", ev.SessionID)
	case roulette.EventForceEnded:
		s.log.Infof("[%s] session force ended", ev.SessionID)
	case roulette.EventSessionEnded:
		s.log.Infof("[%s] session ended", ev.SessionID)
	default:
		s.log.Debugf("[%s] %s", ev.SessionID, ev.Kind)
	}
}

// logPresentation is the default presentation sink: player-facing messages
// land in the server log instead of a game client.
type logPresentation struct {
	log slog.Logger
}

func newLogPresentation(log slog.Logger) roulette.PresentationSink {
	return &logPresentation{log: log}
}

func (p *logPresentation) Notify(recipients []string, kind roulette.EventKind, payload map[string]interface{}) {
	switch kind {
	case roulette.EventPlayerJoined:
		p.log.Infof("%v joined the game (%v/%v)",
			payload["player"], payload["players"], payload["max"])
	case roulette.EventPlayerLeft:
		p.log.Infof("%v left the game", payload["player"])
	case roulette.EventDisconnected:
		p.log.Infof("%v lost connection", payload["player"])
	case roulette.EventCountdownTick:
		p.log.Infof("game starting in %v...", payload["time"])
	case roulette.EventSessionStarted:
		p.log.Infof("the game begins, good luck")
	case roulette.EventTurnStarted:
		p.log.Infof("%v, the revolver is yours (%v bullets loaded)",
			payload["turn"], payload["bullets"])
	case roulette.EventTurnWarning:
		p.log.Infof("%v seconds to pull the trigger", payload["time"])
	case roulette.EventAutoTrigger:
		p.log.Infof("%v hesitated too long, the revolver fires itself", payload["player"])
	case roulette.EventPlayerDied:
		p.log.Infof("BANG! %v is dead", payload["player"])
	case roulette.EventPlayerSurvived:
		p.log.Infof("click... %v lives", payload["player"])
	case roulette.EventWinner:
		p.log.Infof("%v wins the pot of %v", payload["winner"], payload["payout"])
	case roulette.EventPotRefunded:
		p.log.Infof("all wagers refunded")
	case roulette.EventForceEnded:
		p.log.Infof("the game was cancelled")
	case roulette.EventSessionEnded:
		p.log.Infof("the game is over")
	}
}
