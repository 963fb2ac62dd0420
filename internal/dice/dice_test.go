// internal/dice/dice_test.go
package dice

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameroom/internal/room"
	"gameroom/internal/ws"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func startedGame(t *testing.T) (*Game, []*room.Member) {
	t.Helper()
	players := []*room.Member{
		{UserID: "u1", Nickname: "alice", Player: true},
		{UserID: "u2", Nickname: "bob", Player: true},
	}
	g := New()
	require.NoError(t, Service{}.StartGame(g, players))
	return g, players
}

func TestServiceStartGameResetsState(t *testing.T) {
	g, _ := startedGame(t)

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, 1, g.round)
	assert.Equal(t, defaultRounds, g.rounds)
	assert.Empty(t, g.rolls)
	assert.Empty(t, g.scores)
}

func TestServiceStartGameRejectsForeignInstance(t *testing.T) {
	type otherGame struct{ room.Game }
	err := Service{}.StartGame(otherGame{}, nil)
	assert.Error(t, err)
}

func TestCreateGameStateBeforeStart(t *testing.T) {
	// Nothing to report before the first round.
	assert.Nil(t, Processor{}.CreateGameState(New(), "u1"))
}

func TestUpdateGameSettings(t *testing.T) {
	g, _ := startedGame(t)

	broadcasts := []string{}
	broadcast := ws.BroadcastFunc(func(event string) { broadcasts = append(broadcasts, event) })
	send := ws.SendFunc(func(ws.Envelope) {})

	err := Processor{}.UpdateGameSettings(json.RawMessage(`{"rounds":5}`), g, send, broadcast)
	require.NoError(t, err)
	assert.Equal(t, []string{ws.EventGameState}, broadcasts)

	g.mu.Lock()
	assert.Equal(t, 5, g.rounds)
	g.mu.Unlock()

	err = Processor{}.UpdateGameSettings(json.RawMessage(`{"rounds":0}`), g, send, broadcast)
	assert.Error(t, err)
	err = Processor{}.UpdateGameSettings(json.RawMessage(`{"rounds":99}`), g, send, broadcast)
	assert.Error(t, err)
	err = Processor{}.UpdateGameSettings(json.RawMessage(`{broken`), g, send, broadcast)
	assert.Error(t, err)
}

func TestRollFlow(t *testing.T) {
	g, _ := startedGame(t)
	p := Processor{}

	var sent []ws.Envelope
	send := ws.SendFunc(func(env ws.Envelope) { sent = append(sent, env) })
	var broadcasts []string
	broadcast := ws.BroadcastFunc(func(event string) { broadcasts = append(broadcasts, event) })

	rollEnv := ws.Envelope{Event: "ROLL"}

	require.NoError(t, p.IncomingEvent(rollEnv, g, "u1", send, broadcast))
	require.Len(t, sent, 1)
	assert.Equal(t, "ROLLED", sent[0].Event)
	assert.Empty(t, broadcasts, "round must not resolve until everyone rolled")

	// Double roll in the same round is rejected.
	assert.Error(t, p.IncomingEvent(rollEnv, g, "u1", send, broadcast))

	// Non-players cannot roll.
	assert.Error(t, p.IncomingEvent(rollEnv, g, "stranger", send, broadcast))

	require.NoError(t, p.IncomingEvent(rollEnv, g, "u2", send, broadcast))
	assert.Equal(t, []string{"ROUND_RESULT"}, broadcasts)

	result := p.OutgoingEvent("ROUND_RESULT", g, "u1")
	require.NotNil(t, result)

	var payload roundResult
	require.NoError(t, json.Unmarshal(result.Data, &payload))
	assert.Equal(t, 1, payload.Round)
	assert.Contains(t, []string{"alice", "bob"}, payload.Winner)
	assert.Len(t, payload.Rolls, 2)
	assert.Equal(t, 1, payload.Scores["alice"]+payload.Scores["bob"])

	// A fresh round begins.
	g.mu.Lock()
	assert.Equal(t, 2, g.round)
	assert.Empty(t, g.rolls)
	g.mu.Unlock()
}

func TestRenameDuringRoundKeepsStartRoster(t *testing.T) {
	reg := room.NewRegistry(Service{}, testLogger())
	created, err := reg.CreateRoom("u1", "alice")
	require.NoError(t, err)
	second, err := reg.JoinRoom(created.Code, "u2", "bob")
	require.NoError(t, err)
	require.NoError(t, reg.SetPlayerStatus(created.Code, created.UserID, true))
	require.NoError(t, reg.SetPlayerStatus(created.Code, second.UserID, true))
	require.NoError(t, reg.StartGame(created.Code, created.UserID, true))

	rm, ok := reg.Get(created.Code)
	require.True(t, ok)
	g := rm.Game.(*Game)

	// A member renaming themselves mid-round must not disturb the match.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			reg.ChangeNickname(created.Code, "u1", fmt.Sprintf("alice-%d", i))
		}
	}()

	p := Processor{}
	send := ws.SendFunc(func(ws.Envelope) {})
	broadcast := ws.BroadcastFunc(func(string) {})
	for i := 0; i < 50; i++ {
		require.NoError(t, p.IncomingEvent(ws.Envelope{Event: "ROLL"}, g, "u1", send, broadcast))
		require.NoError(t, p.IncomingEvent(ws.Envelope{Event: "ROLL"}, g, "u2", send, broadcast))
	}
	<-done

	// The roster was copied at start time, so results keep the original names.
	result := p.OutgoingEvent("ROUND_RESULT", g, "u1")
	require.NotNil(t, result)
	var payload roundResult
	require.NoError(t, json.Unmarshal(result.Data, &payload))
	assert.ElementsMatch(t, []string{"alice", "bob"}, rollNames(payload.Rolls))
	assert.Contains(t, []string{"alice", "bob"}, payload.Winner)
}

func rollNames(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestIncomingEventUnknown(t *testing.T) {
	g, _ := startedGame(t)
	err := Processor{}.IncomingEvent(ws.Envelope{Event: "NOPE"}, g, "u1",
		func(ws.Envelope) {}, func(string) {})
	assert.Error(t, err)
}

func TestOutgoingEventWithoutResult(t *testing.T) {
	g, _ := startedGame(t)
	assert.Nil(t, Processor{}.OutgoingEvent("ROUND_RESULT", g, "u1"))
	assert.Nil(t, Processor{}.OutgoingEvent("OTHER", g, "u1"))
}

func TestProcessEventError(t *testing.T) {
	data := Processor{}.ProcessEventError(assert.AnError)
	assert.JSONEq(t, `{"message":"assert.AnError general error for testing"}`, string(data))
}
