// internal/sweep/sweeper_test.go
package sweep

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameroom/internal/room"
)

type stubGame struct{}

func (stubGame) Name() string    { return "STUB" }
func (stubGame) MinPlayers() int { return 1 }
func (stubGame) MaxPlayers() int { return 4 }

type stubService struct{}

func (stubService) GameName() string { return "STUB" }

func (stubService) CreateGameInstance() room.Game { return stubGame{} }

func (stubService) StartGame(g room.Game, ps []*room.Member) error { return nil }

type recordingTeardown struct {
	codes []string
}

func (r *recordingTeardown) TeardownRoom(code string) {
	r.codes = append(r.codes, code)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSweepEvictsOnlyIdleRooms(t *testing.T) {
	rooms := room.NewRegistry(stubService{}, testLogger())
	teardown := &recordingTeardown{}
	s := &Sweeper{
		Rooms:       rooms,
		Sessions:    teardown,
		IdleTimeout: time.Hour,
		Logger:      testLogger(),
	}

	stale, err := rooms.CreateRoom("", "alice")
	require.NoError(t, err)
	fresh, err := rooms.CreateRoom("", "bob")
	require.NoError(t, err)

	r, _ := rooms.Get(stale.Code)
	r.Mu.Lock()
	r.LastActivity = time.Now().Add(-2 * time.Hour)
	r.Mu.Unlock()

	s.sweep(context.Background())

	_, ok := rooms.Get(stale.Code)
	assert.False(t, ok)
	_, ok = rooms.Get(fresh.Code)
	assert.True(t, ok)
	assert.Equal(t, []string{stale.Code}, teardown.codes)
}

func TestSweepNoIdleRoomsIsNoop(t *testing.T) {
	rooms := room.NewRegistry(stubService{}, testLogger())
	teardown := &recordingTeardown{}
	s := &Sweeper{
		Rooms:       rooms,
		Sessions:    teardown,
		IdleTimeout: time.Hour,
		Logger:      testLogger(),
	}

	_, err := rooms.CreateRoom("", "alice")
	require.NoError(t, err)

	s.sweep(context.Background())

	assert.Equal(t, 1, rooms.Len())
	assert.Empty(t, teardown.codes)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	rooms := room.NewRegistry(stubService{}, testLogger())
	s := &Sweeper{
		Rooms:        rooms,
		Sessions:     &recordingTeardown{},
		Interval:     10 * time.Millisecond,
		InitialDelay: time.Millisecond,
		IdleTimeout:  time.Hour,
		Logger:       testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
