// internal/dice/dice.go

// Package dice bundles a minimal dice game so the server runs out of the
// box: every player rolls two dice per round, the highest total takes the
// round, first to the configured round count wins. It doubles as the
// reference implementation of the room and websocket game capabilities.
package dice

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"

	"gameroom/internal/room"
	"gameroom/internal/ws"
)

const (
	gameName      = "HIGHROLL"
	minPlayers    = 2
	maxPlayers    = 8
	defaultRounds = 3
	maxRounds     = 20
)

// Game holds one match's state. It is owned exclusively by its Room; the
// internal mutex only serializes the event processor's own accesses.
type Game struct {
	mu      sync.Mutex
	rounds  int
	round   int
	players []*room.Member
	rolls   map[string]int
	scores  map[string]int

	lastRolls  map[string]int
	lastResult *roundResult
}

func New() *Game {
	return &Game{rounds: defaultRounds}
}

func (g *Game) Name() string    { return gameName }
func (g *Game) MinPlayers() int { return minPlayers }
func (g *Game) MaxPlayers() int { return maxPlayers }

// Service implements room.GameService for the dice game.
type Service struct{}

func (Service) GameName() string { return gameName }

func (Service) CreateGameInstance() room.Game { return New() }

func (Service) StartGame(rg room.Game, players []*room.Member) error {
	g, ok := rg.(*Game)
	if !ok {
		return fmt.Errorf("unexpected game instance %T", rg)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.players = players
	g.round = 1
	g.rolls = make(map[string]int, len(players))
	g.scores = make(map[string]int, len(players))
	return nil
}

// stateView is the per-recipient GAME_STATE payload. Members are keyed by
// nickname; userIds never reach clients.
type stateView struct {
	Round    int            `json:"round"`
	Rounds   int            `json:"rounds"`
	Scores   map[string]int `json:"scores"`
	YourRoll int            `json:"yourRoll,omitempty"`
}

// roundResult is the ROUND_RESULT broadcast payload.
type roundResult struct {
	Winner string         `json:"winner"`
	Rolls  map[string]int `json:"rolls"`
	Scores map[string]int `json:"scores"`
	Round  int            `json:"round"`
}

// Processor implements ws.EventProcessor for the dice game.
type Processor struct{}

func (Processor) CreateGameState(rg room.Game, userID string) json.RawMessage {
	g, ok := rg.(*Game)
	if !ok {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.round == 0 {
		return nil
	}
	data, _ := json.Marshal(stateView{
		Round:    g.round,
		Rounds:   g.rounds,
		Scores:   g.scoresByNicknameLocked(),
		YourRoll: g.rolls[userID],
	})
	return data
}

func (Processor) UpdateGameSettings(settings json.RawMessage, rg room.Game, send ws.SendFunc, broadcast ws.BroadcastFunc) error {
	g, ok := rg.(*Game)
	if !ok {
		return fmt.Errorf("unexpected game instance %T", rg)
	}

	var payload struct {
		Rounds int `json:"rounds"`
	}
	if err := json.Unmarshal(settings, &payload); err != nil {
		return fmt.Errorf("bad settings payload: %w", err)
	}
	if payload.Rounds < 1 || payload.Rounds > maxRounds {
		return fmt.Errorf("rounds must be between 1 and %d", maxRounds)
	}

	g.mu.Lock()
	g.rounds = payload.Rounds
	g.mu.Unlock()

	broadcast(ws.EventGameState)
	return nil
}

func (p Processor) StartGame(rg room.Game, userID string) json.RawMessage {
	return p.CreateGameState(rg, userID)
}

func (Processor) RestartGame(rg room.Game, userID string) json.RawMessage {
	return nil
}

func (Processor) IncomingEvent(env ws.Envelope, rg room.Game, userID string, send ws.SendFunc, broadcast ws.BroadcastFunc) error {
	g, ok := rg.(*Game)
	if !ok {
		return fmt.Errorf("unexpected game instance %T", rg)
	}

	switch env.Event {
	case "ROLL":
		done, err := g.roll(userID)
		if err != nil {
			return err
		}
		roll := g.rollOf(userID)
		data, _ := json.Marshal(map[string]int{"roll": roll})
		send(ws.Envelope{Event: "ROLLED", Data: data})
		if done {
			broadcast("ROUND_RESULT")
		}
		return nil
	default:
		return fmt.Errorf("unknown event %q", env.Event)
	}
}

func (Processor) OutgoingEvent(event string, rg room.Game, userID string) *ws.Envelope {
	if event != "ROUND_RESULT" {
		return nil
	}
	g, ok := rg.(*Game)
	if !ok {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastResult == nil {
		return nil
	}
	data, _ := json.Marshal(g.lastResult)
	return &ws.Envelope{Event: "ROUND_RESULT", Data: data}
}

func (Processor) ProcessEventError(err error) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"message": err.Error()})
	return data
}

// roll records userID's roll for the current round. It reports whether the
// round completed (everyone rolled) and resolves the winner if so.
func (g *Game) roll(userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.round == 0 {
		return false, fmt.Errorf("game not started")
	}

	var player *room.Member
	for _, p := range g.players {
		if p.UserID == userID {
			player = p
			break
		}
	}
	if player == nil {
		return false, fmt.Errorf("you are not playing this match")
	}
	if _, rolled := g.rolls[userID]; rolled {
		return false, fmt.Errorf("you already rolled this round")
	}

	g.rolls[userID] = rand.IntN(6) + rand.IntN(6) + 2
	if len(g.rolls) < len(g.players) {
		return false, nil
	}

	g.resolveRoundLocked()
	return true, nil
}

func (g *Game) rollOf(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rolls[userID]; ok {
		return r
	}
	return g.lastRolls[userID]
}

func (g *Game) resolveRoundLocked() {
	var winner *room.Member
	best := -1
	for _, p := range g.players {
		if roll := g.rolls[p.UserID]; roll > best {
			best = roll
			winner = p
		}
	}
	g.scores[winner.UserID]++

	rolls := make(map[string]int, len(g.players))
	for _, p := range g.players {
		rolls[p.Nickname] = g.rolls[p.UserID]
	}
	g.lastResult = &roundResult{
		Winner: winner.Nickname,
		Rolls:  rolls,
		Scores: g.scoresByNicknameLocked(),
		Round:  g.round,
	}
	g.lastRolls = g.rolls
	g.rolls = make(map[string]int, len(g.players))
	g.round++
}

func (g *Game) scoresByNicknameLocked() map[string]int {
	scores := make(map[string]int, len(g.players))
	for _, p := range g.players {
		scores[p.Nickname] = g.scores[p.UserID]
	}
	return scores
}
