// internal/ws/registry.go
package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"gameroom/internal/room"
)

// Session binds one live connection to a userId and a room code. The mutex
// serializes interleaved writers on the single connection; it never guards
// shared state.
type Session struct {
	mu     sync.Mutex
	userID string
	code   string
	conn   Conn
}

// UserID returns the member identity attached to this connection.
func (s *Session) UserID() string { return s.userID }

// Code returns the room code this connection is bound to.
func (s *Session) Code() string { return s.code }

func (s *Session) send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(context.Background(), data)
}

// holder keeps the live connection list for one room. Its lock makes
// connect, disconnect, admin handover and teardown mutually exclusive;
// broadcast assembly works on snapshots and may interleave.
type holder struct {
	mu       sync.Mutex
	sessions []*Session
}

func (h *holder) add(s *Session) {
	h.mu.Lock()
	h.sessions = append(h.sessions, s)
	h.mu.Unlock()
}

func (h *holder) removeLocked(s *Session) {
	for i, cur := range h.sessions {
		if cur == s {
			h.sessions = append(h.sessions[:i], h.sessions[i+1:]...)
			return
		}
	}
}

func (h *holder) remove(s *Session) {
	h.mu.Lock()
	h.removeLocked(s)
	h.mu.Unlock()
}

func (h *holder) snapshot() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, len(h.sessions))
	copy(out, h.sessions)
	return out
}

func (h *holder) contains(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cur := range h.sessions {
		if cur == s {
			return true
		}
	}
	return false
}

// SessionRegistry owns the connection-token and connection-list maps for all
// rooms and drives every broadcast. The registry lock only guards the two
// maps structurally; no message is ever written while it is held.
type SessionRegistry struct {
	mu         sync.Mutex
	tokenCodes map[string]string
	holders    map[string]*holder

	rooms  *room.Registry
	proc   EventProcessor
	logger *logrus.Logger
}

func NewSessionRegistry(rooms *room.Registry, proc EventProcessor, logger *logrus.Logger) *SessionRegistry {
	return &SessionRegistry{
		tokenCodes: make(map[string]string),
		holders:    make(map[string]*holder),
		rooms:      rooms,
		proc:       proc,
		logger:     logger,
	}
}

// RegisterToken binds a room's connection token to its code and creates the
// empty connection list. Called once per room creation.
func (sr *SessionRegistry) RegisterToken(token, code string) {
	sr.mu.Lock()
	sr.tokenCodes[token] = code
	sr.holders[code] = &holder{}
	sr.mu.Unlock()
	sr.logger.WithField("code", code).Debug("session list created")
}

func (sr *SessionRegistry) holderFor(code string) *holder {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.holders[code]
}

// Connect attaches a validated credential of the form "userId:connectionToken"
// to its room. The new arrival is announced with UPDATE_MEMBERS, and when the
// game is already running the connecting member privately receives the
// current game state.
func (sr *SessionRegistry) Connect(credential string, conn Conn) (*Session, error) {
	userID, token, ok := strings.Cut(credential, ":")
	if !ok {
		return nil, room.ErrBadToken
	}

	sr.mu.Lock()
	code, bound := sr.tokenCodes[token]
	h := sr.holders[code]
	sr.mu.Unlock()
	if !bound || h == nil {
		sr.logger.WithField("userId", userID).Warn("websocket connect with unbound token")
		return nil, room.ErrBadToken
	}

	s := &Session{userID: userID, code: code, conn: conn}
	h.add(s)
	sr.logger.WithFields(logrus.Fields{"userId": userID, "code": code}).Info("websocket connected")

	sr.Broadcast(code, EventUpdateMembers)

	if rm, live := sr.rooms.Get(code); live && rm.Started() {
		env := Envelope{Event: EventGameState, Data: sr.proc.CreateGameState(rm.Game, userID)}
		if err := s.send(env); err != nil {
			sr.logger.WithError(err).Warn("send game state on connect")
		}
	}

	return s, nil
}

// HandleMessage processes one inbound envelope from the connection. PING is
// answered in place; UPDATE_SETTINGS is admin-gated; everything else goes to
// the event processor. Game logic failures are converted to a private ERROR
// event and never tear the connection down.
func (sr *SessionRegistry) HandleMessage(s *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		sr.logger.WithError(err).Warn("invalid websocket message")
		return
	}

	if env.Event == eventPing {
		env.Event = eventPong
		if err := s.send(env); err != nil {
			sr.logger.WithError(err).Warn("send pong")
		}
		return
	}

	var target struct {
		Code string `json:"code"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &target); err != nil {
			sr.logger.WithError(err).Warn("invalid event data")
			return
		}
	}

	rm, ok := sr.rooms.Get(target.Code)
	if !ok {
		sr.sendError(s, room.ErrRoomNotFound)
		return
	}

	// The sender must still be registered in the room's connection list;
	// a session with no entry is a broken invariant, not a user error.
	if h := sr.holderFor(target.Code); h == nil || !h.contains(s) {
		sr.logger.WithFields(logrus.Fields{"userId": s.userID, "code": target.Code}).
			Error(room.ErrNoSession.Message)
		return
	}

	send := SendFunc(func(out Envelope) {
		if err := s.send(out); err != nil {
			sr.logger.WithError(err).Warn("send private event")
		}
	})
	broadcast := BroadcastFunc(func(event string) {
		sr.Broadcast(target.Code, event)
	})

	var procErr error
	if env.Event == EventUpdateSettings {
		rm.Mu.RLock()
		member := rm.MemberByUserIDUnsafe(s.userID)
		isAdmin := member != nil && member.Admin
		rm.Mu.RUnlock()
		if !isAdmin {
			procErr = room.ErrNotAdmin
		} else {
			procErr = sr.proc.UpdateGameSettings(env.Data, rm.Game, send, broadcast)
		}
	} else {
		procErr = sr.proc.IncomingEvent(env, rm.Game, s.userID, send, broadcast)
	}
	if procErr != nil {
		sr.sendError(s, procErr)
	}

	rm.Touch()
}

func (sr *SessionRegistry) sendError(s *Session, cause error) {
	env := Envelope{Event: EventError, Data: sr.proc.ProcessEventError(cause)}
	if err := s.send(env); err != nil {
		sr.logger.WithError(err).Warn("send error event")
	}
}

// Broadcast pushes the named event to the room's live connections. No-op for
// rooms without a session list. Every branch refreshes the room's activity
// timestamp on completion.
func (sr *SessionRegistry) Broadcast(code, event string) {
	h := sr.holderFor(code)
	if h == nil {
		return
	}
	rm, ok := sr.rooms.Get(code)
	if !ok {
		return
	}
	sessions := h.snapshot()

	switch event {
	case EventUpdateMembers:
		online := make(map[string]bool, len(sessions))
		for _, s := range sessions {
			online[s.userID] = true
		}
		update := membersUpdate{Members: make([]room.Member, 0, len(sessions))}
		rm.Mu.RLock()
		for _, m := range rm.Members {
			if !online[m.UserID] {
				continue
			}
			if m.Spectator {
				update.SpectatorsCount++
			}
			if m.Player {
				update.Members = append(update.Members, *m)
			}
		}
		rm.Mu.RUnlock()
		data, err := json.Marshal(update)
		if err != nil {
			sr.logger.WithError(err).Error("marshal members update")
			return
		}
		sr.sendAll(sessions, Envelope{Event: EventUpdateMembers, Data: data})

	case EventGameState:
		for _, s := range sessions {
			env := Envelope{Event: EventGameState, Data: sr.proc.CreateGameState(rm.Game, s.userID)}
			sr.sendOne(s, env)
		}

	case EventStartGame:
		rm.Mu.Lock()
		rm.GameStarted = true
		kickedIDs := rm.RemoveMembersUnsafe(func(m *room.Member) bool { return m.Spectator })
		rm.Mu.Unlock()

		kicked := make(map[string]bool, len(kickedIDs))
		for _, id := range kickedIDs {
			kicked[id] = true
		}
		for _, s := range sessions {
			if kicked[s.userID] {
				if err := s.conn.Close(websocket.StatusNormalClosure, "game started"); err != nil {
					sr.logger.WithError(err).Debug("close spectator session")
				}
			}
		}
		for _, s := range sessions {
			if kicked[s.userID] {
				continue
			}
			sr.sendOne(s, Envelope{Event: EventStartGame, Data: sr.proc.StartGame(rm.Game, s.userID)})
		}

	case EventRestartGame:
		rm.Mu.Lock()
		rm.GameStarted = false
		rm.Mu.Unlock()
		for _, s := range sessions {
			sr.sendOne(s, Envelope{Event: EventRestartGame, Data: sr.proc.RestartGame(rm.Game, s.userID)})
		}

	default:
		for _, s := range sessions {
			if env := sr.proc.OutgoingEvent(event, rm.Game, s.userID); env != nil {
				sr.sendOne(s, *env)
			}
		}
	}

	rm.Touch()
}

func (sr *SessionRegistry) sendAll(sessions []*Session, env Envelope) {
	for _, s := range sessions {
		sr.sendOne(s, env)
	}
}

func (sr *SessionRegistry) sendOne(s *Session, env Envelope) {
	if err := s.send(env); err != nil {
		sr.logger.WithFields(logrus.Fields{"userId": s.userID, "event": env.Event}).
			WithError(err).Warn("broadcast send failed")
	}
}

// Disconnect removes the connection from its room. Before the game starts a
// departing member leaves the room entirely; a departing admin hands the
// role to the first remaining player, or, with no heir, destroys the room.
func (sr *SessionRegistry) Disconnect(s *Session) {
	h := sr.holderFor(s.code)
	if h == nil {
		// Room already torn down, nothing to clean up.
		return
	}
	rm, ok := sr.rooms.Get(s.code)
	if !ok {
		h.remove(s)
		return
	}

	destroy := false
	h.mu.Lock()
	h.removeLocked(s)

	rm.Mu.Lock()
	member := rm.MemberByUserIDUnsafe(s.userID)
	if !rm.GameStarted {
		rm.RemoveMembersUnsafe(func(m *room.Member) bool { return m.UserID == s.userID })
	}
	if member != nil && member.Admin {
		member.Admin = false
		var heir *room.Member
		for _, m := range rm.Members {
			if m.Player && m.UserID != s.userID {
				heir = m
				break
			}
		}
		if heir != nil {
			heir.Admin = true
			sr.logger.WithFields(logrus.Fields{"code": s.code, "from": s.userID, "to": heir.UserID}).
				Info("admin handed over")
		} else {
			destroy = true
		}
	}
	rm.Mu.Unlock()
	h.mu.Unlock()

	sr.logger.WithFields(logrus.Fields{"userId": s.userID, "code": s.code}).Info("websocket disconnected")

	if destroy {
		sr.logger.WithField("code", s.code).Info("last admin left with no heir, destroying room")
		sr.rooms.Evict(s.code)
		sr.TeardownRoom(s.code)
		return
	}

	sr.Broadcast(s.code, EventUpdateMembers)
}

// TeardownRoom drops the room's session list and token binding and closes
// any remaining connections. Idempotent.
func (sr *SessionRegistry) TeardownRoom(code string) {
	sr.mu.Lock()
	h := sr.holders[code]
	delete(sr.holders, code)
	for token, c := range sr.tokenCodes {
		if c == code {
			delete(sr.tokenCodes, token)
			break
		}
	}
	sr.mu.Unlock()

	if h == nil {
		return
	}
	for _, s := range h.snapshot() {
		if err := s.conn.Close(websocket.StatusNormalClosure, "room closed"); err != nil {
			sr.logger.WithError(err).Debug("close session on teardown")
		}
	}
	sr.logger.WithField("code", code).Debug("session list removed")
}
