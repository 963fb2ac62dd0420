// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"gameroom/internal/auth"
	"gameroom/internal/journal"
	"gameroom/internal/room"
	"gameroom/internal/ws"
)

// RoomServer is the thin request surface: every handler maps 1:1 to a room
// registry operation followed by zero or more broadcasts.
type RoomServer struct {
	Rooms    *room.Registry
	Sessions *ws.SessionRegistry
	Logger   *logrus.Logger
}

func NewRoomServer(rooms *room.Registry, sessions *ws.SessionRegistry, logger *logrus.Logger) *RoomServer {
	return &RoomServer{Rooms: rooms, Sessions: sessions, Logger: logger}
}

// ServeHTTP dispatches the /room/ REST surface by hand. The path shapes
// (/room/join/{code} next to /room/{code}/start) overlap too much for
// ServeMux wildcard patterns, which reject the combination at registration.
func (rs *RoomServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/room"), "/"), "/")

	var handle http.HandlerFunc
	method := http.MethodPost

	switch len(parts) {
	case 1:
		if parts[0] == "create" {
			handle = rs.createRoom
		}
	case 2:
		if parts[0] == "join" {
			code := parts[1]
			handle = func(w http.ResponseWriter, r *http.Request) { rs.joinRoom(w, r, code) }
			break
		}
		code := parts[0]
		switch parts[1] {
		case "start":
			handle = func(w http.ResponseWriter, r *http.Request) { rs.startGame(w, r, code) }
		case "restart":
			handle = func(w http.ResponseWriter, r *http.Request) { rs.restartGame(w, r, code) }
		case "spectators":
			method = http.MethodGet
			handle = func(w http.ResponseWriter, r *http.Request) { rs.listSpectators(w, code) }
		}
	case 3:
		code, userID, field := parts[0], parts[1], parts[2]
		switch field {
		case "nickname", "color", "player", "ready":
			handle = func(w http.ResponseWriter, r *http.Request) {
				rs.changeMemberField(w, r, code, userID, field)
			}
		}
	}

	if handle == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handle(w, r)
}

// roomResponse is a room summary plus the signed websocket connect ticket.
type roomResponse struct {
	*room.Summary
	WSTicket string `json:"wsTicket"`
}

// createRoom handles POST /room/create.
func (rs *RoomServer) createRoom(w http.ResponseWriter, r *http.Request) {
	summary, err := rs.Rooms.CreateRoom(r.FormValue("userId"), r.FormValue("nickname"))
	if err != nil {
		rs.writeError(w, err)
		return
	}
	rs.Sessions.RegisterToken(summary.ConnectionToken, summary.Code)

	rs.journal(r, journal.Record{Code: summary.Code, Event: "room_created", UserID: summary.UserID})
	rs.writeSummary(w, summary)
}

// joinRoom handles POST /room/join/{code}.
func (rs *RoomServer) joinRoom(w http.ResponseWriter, r *http.Request, code string) {
	summary, err := rs.Rooms.JoinRoom(code, r.FormValue("userId"), r.FormValue("nickname"))
	if err != nil {
		rs.writeError(w, err)
		return
	}
	rs.Sessions.Broadcast(code, ws.EventUpdateMembers)

	rs.journal(r, journal.Record{Code: code, Event: "member_joined", UserID: summary.UserID})
	rs.writeSummary(w, summary)
}

// changeMemberField handles POST /room/{code}/{userId}/(nickname|color|player|ready).
func (rs *RoomServer) changeMemberField(w http.ResponseWriter, r *http.Request, code, userID, field string) {
	var err error
	switch field {
	case "nickname":
		err = rs.Rooms.ChangeNickname(code, userID, r.FormValue("newNickname"))
	case "color":
		err = rs.Rooms.ChangeColor(code, userID, r.FormValue("newColor"))
	case "player":
		err = rs.Rooms.SetPlayerStatus(code, userID, formBool(r, "newStatus"))
	case "ready":
		err = rs.Rooms.SetReadyStatus(code, userID, formBool(r, "newStatus"))
	}
	if err != nil {
		rs.writeError(w, err)
		return
	}
	rs.Sessions.Broadcast(code, ws.EventUpdateMembers)
	w.WriteHeader(http.StatusNoContent)
}

// startGame handles POST /room/{code}/start.
func (rs *RoomServer) startGame(w http.ResponseWriter, r *http.Request, code string) {
	if err := rs.Rooms.StartGame(code, r.FormValue("userId"), formBool(r, "forceStart")); err != nil {
		rs.writeError(w, err)
		return
	}
	rs.Sessions.Broadcast(code, ws.EventUpdateMembers)
	rs.Sessions.Broadcast(code, ws.EventStartGame)

	rs.journal(r, journal.Record{Code: code, Event: "game_started"})
	w.WriteHeader(http.StatusNoContent)
}

// restartGame handles POST /room/{code}/restart. The restart broadcast goes
// out first so clients reset, then the game is force-started again.
func (rs *RoomServer) restartGame(w http.ResponseWriter, r *http.Request, code string) {
	rs.Sessions.Broadcast(code, ws.EventRestartGame)
	if err := rs.Rooms.StartGame(code, r.FormValue("userId"), true); err != nil {
		rs.writeError(w, err)
		return
	}
	rs.Sessions.Broadcast(code, ws.EventUpdateMembers)
	rs.Sessions.Broadcast(code, ws.EventStartGame)

	rs.journal(r, journal.Record{Code: code, Event: "game_restarted"})
	w.WriteHeader(http.StatusNoContent)
}

// listSpectators handles GET /room/{code}/spectators.
func (rs *RoomServer) listSpectators(w http.ResponseWriter, code string) {
	spectators, err := rs.Rooms.Spectators(code)
	if err != nil {
		rs.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spectators)
}

// journal records a lifecycle event, logging instead of failing the request
// when the journal backend is unreachable.
func (rs *RoomServer) journal(r *http.Request, rec journal.Record) {
	if err := journal.Publish(r.Context(), rec); err != nil {
		rs.Logger.WithError(err).Warn("journal publish failed")
	}
}

func (rs *RoomServer) writeSummary(w http.ResponseWriter, summary *room.Summary) {
	ticket, err := auth.IssueTicket(summary.UserID, summary.ConnectionToken)
	if err != nil {
		rs.Logger.WithError(err).Error("issue connect ticket")
		rs.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(roomResponse{Summary: summary, WSTicket: ticket})
}

func (rs *RoomServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch room.KindOf(err) {
	case room.KindValidation:
		status = http.StatusBadRequest
	case room.KindNotFound:
		status = http.StatusNotFound
	case room.KindForbidden:
		status = http.StatusForbidden
	case room.KindConflict:
		status = http.StatusConflict
	case room.KindUnauthorized:
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		rs.Logger.WithError(err).Error("room operation failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}

func formBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.FormValue(name))
	return v
}
