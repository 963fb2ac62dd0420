// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"

	"gameroom/internal/room"
)

// GameInfoHandler returns the name of the game hosted by this server.
func GameInfoHandler(svc room.GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"gameName": svc.GameName()})
	}
}
