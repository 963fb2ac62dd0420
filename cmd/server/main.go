// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"gameroom/internal/auth"
	"gameroom/internal/dice"
	"gameroom/internal/handlers"
	"gameroom/internal/journal"
	"gameroom/internal/middleware"
	"gameroom/internal/room"
	"gameroom/internal/sweep"
	"gameroom/internal/ws"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := journal.Connect(); err != nil {
		logger.Warnf("journal disabled: %v", err)
	}

	svc := dice.Service{}
	rooms := room.NewRegistry(svc, logger)
	sessions := ws.NewSessionRegistry(rooms, dice.Processor{}, logger)

	sweeper := &sweep.Sweeper{
		Rooms:       rooms,
		Sessions:    sessions,
		Interval:    envDuration("SWEEP_INTERVAL", sweep.DefaultInterval),
		IdleTimeout: envDuration("ROOM_IDLE_TIMEOUT", sweep.DefaultIdleTimeout),
		Logger:      logger,
	}
	go sweeper.Run(context.Background())

	rs := handlers.NewRoomServer(rooms, sessions, logger)

	mux := http.NewServeMux()

	// room endpoints (dispatched inside RoomServer)
	mux.Handle("/room/", rs)

	// game info
	mux.HandleFunc("GET /game/info", handlers.GameInfoHandler(svc))

	// room websocket; the exact pattern wins over the /room/ subtree
	mux.Handle("/room/ws", ws.Handler(sessions, logger))

	handler := middleware.LogMiddleware(logger)(mux)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
