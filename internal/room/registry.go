// internal/room/registry.go
package room

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 4

	// maxRoomMembers bounds resource use per room; only pre-existing
	// members may re-enter a full room.
	maxRoomMembers = 200
)

// Summary is the response payload for create/join operations.
type Summary struct {
	Code            string `json:"code"`
	ConnectionToken string `json:"wsToken"`
	GameName        string `json:"gameName"`
	GameStarted     bool   `json:"gameStarted"`
	UserID          string `json:"userId"`
}

// Registry owns the process-wide code -> Room mapping. Structural changes
// (insert/evict) take the registry lock; per-room mutation is serialized by
// each room's own lock. The game service is never invoked while either lock
// is held.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	svc    GameService
	logger *logrus.Logger
}

func NewRegistry(svc GameService, logger *logrus.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		svc:    svc,
		logger: logger,
	}
}

// Get returns the live room for code, if any.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// CreateRoom builds a new room with its creator as admin spectator and
// inserts it under a freshly generated unique code.
func (reg *Registry) CreateRoom(userID, nickname string) (*Summary, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrEmptyNickname
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	member := &Member{
		UserID:   userID,
		Nickname: nickname,
		Color:    randomColor(),
		Admin:    true,
	}
	member.SetSpectator(true)

	game := reg.svc.CreateGameInstance()
	r := NewRoom("", uuid.NewString(), game)
	r.Members = append(r.Members, member)

	// Code generation retries on collision under the registry lock, so a
	// generated code is unique for as long as the room lives.
	reg.mu.Lock()
	for {
		code := randomCode()
		if _, taken := reg.rooms[code]; !taken {
			r.Code = code
			reg.rooms[code] = r
			break
		}
	}
	reg.mu.Unlock()

	reg.logger.WithFields(logrus.Fields{"code": r.Code, "game": game.Name()}).Info("room created")

	return &Summary{
		Code:            r.Code,
		ConnectionToken: r.ConnectionToken,
		GameName:        game.Name(),
		GameStarted:     false,
		UserID:          userID,
	}, nil
}

// JoinRoom adds a new spectator member, or, when userId already belongs to
// the room, reconnects that member. Reconnects bypass the started-game and
// capacity checks and only refresh the nickname.
func (reg *Registry) JoinRoom(code, userID, nickname string) (*Summary, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrEmptyNickname
	}

	r, ok := reg.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	member := r.MemberByUserIDUnsafe(userID)
	existing := member != nil
	if !existing {
		if r.GameStarted {
			return nil, ErrGameStarted
		}
		if len(r.Members) >= maxRoomMembers {
			return nil, ErrRoomFull
		}
		if userID == "" {
			userID = uuid.NewString()
		}
		member = &Member{
			UserID: userID,
			Color:  randomColor(),
		}
		member.SetSpectator(true)
		r.Members = append(r.Members, member)
	}
	member.Nickname = nickname

	r.TouchUnsafe()

	return &Summary{
		Code:            r.Code,
		ConnectionToken: r.ConnectionToken,
		GameName:        r.Game.Name(),
		GameStarted:     r.GameStarted,
		UserID:          member.UserID,
	}, nil
}

// ChangeNickname renames an existing member.
func (reg *Registry) ChangeNickname(code, userID, newNickname string) error {
	return reg.updateMember(code, userID, func(m *Member) {
		m.Nickname = newNickname
	})
}

// ChangeColor sets a member's display color. The value is caller-supplied
// free text; only registry-generated colors follow the #rrggbb form.
func (reg *Registry) ChangeColor(code, userID, newColor string) error {
	return reg.updateMember(code, userID, func(m *Member) {
		m.Color = newColor
	})
}

func (reg *Registry) updateMember(code, userID string, apply func(*Member)) error {
	r, ok := reg.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	member := r.MemberByUserIDUnsafe(userID)
	if member == nil {
		return ErrMemberNotFound
	}
	apply(member)
	r.TouchUnsafe()
	return nil
}

// SetPlayerStatus moves a member between the player and spectator roles.
// Becoming a player fails once the game's max player count is reached; the
// check and the flip happen under one room lock so the cap is never exceeded
// by concurrent calls.
func (reg *Registry) SetPlayerStatus(code, userID string, wantsPlayer bool) error {
	r, ok := reg.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	member := r.MemberByUserIDUnsafe(userID)
	if member == nil {
		return ErrMemberNotFound
	}
	if wantsPlayer && r.PlayerCountUnsafe() == r.Game.MaxPlayers() {
		return ErrMaxPlayers
	}

	member.SetPlayer(wantsPlayer)
	r.TouchUnsafe()
	return nil
}

// SetReadyStatus flags a player member as ready or not. Readiness is frozen
// once the game has started.
func (reg *Registry) SetReadyStatus(code, userID string, ready bool) error {
	r, ok := reg.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.GameStarted {
		return ErrGameStarted
	}
	member := r.MemberByUserIDUnsafe(userID)
	if member == nil || !member.Player {
		return ErrNotPlayer
	}

	member.Ready = ready
	r.TouchUnsafe()
	return nil
}

// StartGame validates the start conditions, marks every player ready and
// delegates to the game service. Marking the room as started is left to the
// START_GAME broadcast so connected clients observe the transition.
func (reg *Registry) StartGame(code, userID string, force bool) error {
	r, ok := reg.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mu.Lock()
	if r.GameStarted {
		r.Mu.Unlock()
		return ErrGameStarted
	}
	member := r.MemberByUserIDUnsafe(userID)
	if member == nil || !member.Admin {
		r.Mu.Unlock()
		return ErrNotAdmin
	}

	players := make([]*Member, 0, r.Game.MaxPlayers())
	allReady := true
	for _, m := range r.Members {
		if m.Player {
			if !m.Ready {
				allReady = false
			}
			players = append(players, m)
		}
	}
	if !force && !allReady {
		r.Mu.Unlock()
		return ErrNotAllReady
	}
	if len(players) < r.Game.MinPlayers() {
		r.Mu.Unlock()
		return ErrNotEnoughPlayers
	}
	for _, p := range players {
		p.Ready = true
	}
	game := r.Game
	// The game may retain its roster past this call, so it gets value
	// copies; live members stay behind the room lock.
	roster := make([]*Member, len(players))
	for i, p := range players {
		c := *p
		roster[i] = &c
	}
	r.Mu.Unlock()

	// Game logic runs without any registry or room lock held; it may call
	// back into the registries synchronously.
	if err := reg.svc.StartGame(game, roster); err != nil {
		return fmt.Errorf("start game: %w", err)
	}

	r.Touch()
	return nil
}

// Spectators lists all members currently in the spectator role.
func (reg *Registry) Spectators(code string) ([]Member, error) {
	r, ok := reg.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.Mu.RLock()
	defer r.Mu.RUnlock()

	spectators := make([]Member, 0, len(r.Members))
	for _, m := range r.Members {
		if m.Spectator {
			spectators = append(spectators, *m)
		}
	}
	return spectators, nil
}

// Evict removes a room from the registry. Idempotent.
func (reg *Registry) Evict(code string) {
	reg.mu.Lock()
	if _, ok := reg.rooms[code]; ok {
		delete(reg.rooms, code)
		reg.logger.WithField("code", code).Info("room evicted")
	}
	reg.mu.Unlock()
}

// ExpiredRooms scans the registry under its lock and returns the codes of
// rooms idle longer than window. Acting on the result is left to the caller
// so teardown never runs with the registry lock held.
func (reg *Registry) ExpiredRooms(window time.Duration) []string {
	now := time.Now()
	var expired []string

	reg.mu.Lock()
	for code, r := range reg.rooms {
		r.Mu.RLock()
		idle := r.LastActivity.Add(window).Before(now)
		r.Mu.RUnlock()
		if idle {
			expired = append(expired, code)
		}
	}
	reg.mu.Unlock()

	return expired
}

func randomCode() string {
	var b [codeLength]byte
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b[:])
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0xffffff+1))
}
