// internal/room/game.go
package room

// Game is the opaque handle for one game instance. A Room owns its Game
// exclusively; all access funnels through the registries holding the room.
type Game interface {
	Name() string
	MinPlayers() int
	MaxPlayers() int
}

// GameService is the game logic capability supplied by the embedding
// application. One concrete implementation exists per hosted game.
type GameService interface {
	GameName() string
	CreateGameInstance() Game

	// StartGame launches a new match on g with the given players, in
	// membership order. The players are value copies taken under the room
	// lock; the game may retain them, and later member mutations (rename,
	// recolor) are not reflected in them.
	StartGame(g Game, players []*Member) error
}
