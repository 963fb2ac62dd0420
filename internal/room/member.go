// internal/room/member.go
package room

// Member is a participant identity within a room. The userId is the stable
// handle for reconnects and is never serialized to clients.
//
// A member is either a player or a spectator, never both; readiness only
// applies to players. Fields are guarded by the owning Room's mutex.
type Member struct {
	UserID    string `json:"-"`
	Nickname  string `json:"nickname"`
	Color     string `json:"color"`
	Admin     bool   `json:"isAdmin"`
	Player    bool   `json:"isPlayer"`
	Spectator bool   `json:"isSpectator"`
	Ready     bool   `json:"isReady"`
}

// SetPlayer flips the member between player and spectator roles, keeping the
// two flags mutually exclusive. Leaving the player role clears readiness.
func (m *Member) SetPlayer(player bool) {
	m.Player = player
	m.Spectator = !player
	if !player {
		m.Ready = false
	}
}

// SetSpectator is the inverse of SetPlayer.
func (m *Member) SetSpectator(spectator bool) {
	m.SetPlayer(!spectator)
}
