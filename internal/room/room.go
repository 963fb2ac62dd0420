// internal/room/room.go
package room

import (
	"sync"
	"time"
)

// Room is an in-memory lobby identified by a short code. Members, the
// started flag and the activity timestamp are guarded by Mu; Code,
// ConnectionToken and Game are immutable after creation.
//
// Methods with an Unsafe suffix assume the caller holds Mu.
type Room struct {
	Code            string
	ConnectionToken string
	Game            Game

	Mu           sync.RWMutex
	Members      []*Member
	GameStarted  bool
	LastActivity time.Time
}

func NewRoom(code, connectionToken string, g Game) *Room {
	return &Room{
		Code:            code,
		ConnectionToken: connectionToken,
		Game:            g,
		LastActivity:    time.Now(),
	}
}

// MemberByUserIDUnsafe returns the live member with the given userId, or nil.
func (r *Room) MemberByUserIDUnsafe(userID string) *Member {
	for _, m := range r.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

// PlayerCountUnsafe counts members currently in the player role.
func (r *Room) PlayerCountUnsafe() int {
	n := 0
	for _, m := range r.Members {
		if m.Player {
			n++
		}
	}
	return n
}

// SnapshotMembersUnsafe copies the current member values. Broadcast payload
// assembly works on these copies so it never observes a torn member.
func (r *Room) SnapshotMembersUnsafe() []Member {
	snapshot := make([]Member, 0, len(r.Members))
	for _, m := range r.Members {
		snapshot = append(snapshot, *m)
	}
	return snapshot
}

// RemoveMembersUnsafe drops every member matching the predicate and returns
// the userIds removed.
func (r *Room) RemoveMembersUnsafe(match func(*Member) bool) []string {
	var removed []string
	kept := r.Members[:0]
	for _, m := range r.Members {
		if match(m) {
			removed = append(removed, m.UserID)
		} else {
			kept = append(kept, m)
		}
	}
	r.Members = kept
	return removed
}

func (r *Room) TouchUnsafe() {
	r.LastActivity = time.Now()
}

// Touch refreshes the activity timestamp, acquiring the room lock.
func (r *Room) Touch() {
	r.Mu.Lock()
	r.TouchUnsafe()
	r.Mu.Unlock()
}

// Started reports whether the room's game has started.
func (r *Room) Started() bool {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return r.GameStarted
}
