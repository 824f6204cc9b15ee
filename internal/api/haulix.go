package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/haulix/relay/internal/config"
	"github.com/haulix/relay/internal/relay"
	"github.com/haulix/relay/internal/store"
)

// HaulixApp is the HTTP surface: the chat/order REST endpoints the site
// widget and admin dashboard call, admin login, and the websocket upgrade
// that hands connections to the relay.
type HaulixApp struct {
	log               *log.Logger
	db                store.Repository
	mux               *http.Server
	rs                *relay.RelayServer
	signingKey        []byte
	adminPasswordHash string
	allowedOrigins    []string
}

func NewHaulixApp(mux *http.ServeMux, logger *log.Logger, rs *relay.RelayServer, db store.Repository, cfg *config.Config) *HaulixApp {
	s := &HaulixApp{
		log:               logger,
		db:                db,
		rs:                rs,
		signingKey:        cfg.SigningKey,
		adminPasswordHash: cfg.AdminPasswordHash,
		allowedOrigins:    cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/logout", s.logout)
	mux.HandleFunc("GET /api/chat", s.getChat)
	mux.HandleFunc("POST /api/chat", s.appendChatMessage)
	mux.Handle("PUT /api/chat", s.adminMiddleware(s.listActiveChats))
	mux.HandleFunc("GET /api/orders", s.getOrders)
	mux.HandleFunc("POST /api/orders", s.createOrder)
	mux.Handle("PUT /api/orders", s.adminMiddleware(s.updateOrderStatus))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *HaulixApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *HaulixApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
