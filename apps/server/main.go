package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"speed-lite/apps/server/internal/auth"
	"speed-lite/apps/server/internal/gateway"
	"speed-lite/apps/server/internal/lobby"
	"speed-lite/apps/server/internal/stats"
)

func main() {
	authService, authMode, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init auth manager: %v", err)
	}
	defer authService.Close()
	statsService, statsMode, err := stats.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init stats service: %v", err)
	}
	defer statsService.Close()

	lby := lobby.New(statsService)
	defer lby.Stop()
	gw := gateway.New(lby)
	authHTTP := auth.NewHTTPHandler(authService)
	statsHTTP := stats.NewHTTPHandler(statsService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)
	statsHTTP.RegisterRoutes(mux)

	addr := listenAddrFromEnv()
	log.Printf("[Server] Auth mode: %s", authMode)
	log.Printf("[Server] Stats mode: %s", statsMode)
	log.Printf("[Server] Starting WebSocket server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}

func listenAddrFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		return v
	}
	return ":8080"
}
