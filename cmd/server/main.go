package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fsmforge/fsmforge/backend-go/internal/auth"
	"github.com/fsmforge/fsmforge/backend-go/internal/collab"
	"github.com/fsmforge/fsmforge/backend-go/internal/config"
	"github.com/fsmforge/fsmforge/backend-go/internal/db"
	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/export"
	mw "github.com/fsmforge/fsmforge/backend-go/internal/middleware"
	"github.com/fsmforge/fsmforge/backend-go/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queries := db.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	storeService := store.NewService(queries)
	storeHandler := store.NewHandler(storeService)

	// Document loader/saver for the collaboration hub. These run in the
	// hub goroutine, so they use a background context.
	docLoader := func(diagramID string) (*diagram.Document, error) {
		return storeService.LoadDocument(context.Background(), diagramID)
	}
	docSaver := func(diagramID string, doc *diagram.Document) error {
		return storeService.SaveDocument(context.Background(), diagramID, doc)
	}

	hub := collab.NewHub(docLoader, docSaver, time.Duration(cfg.AutosaveSecs)*time.Second)
	go hub.Run()

	exportHandler := export.NewHandler()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Export is public: stateless document conversion, no stored data.
	r.HandleFunc("/export/{format}", exportHandler.Render).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/diagrams", storeHandler.List).Methods("GET")
	api.HandleFunc("/diagrams", storeHandler.Create).Methods("POST")
	api.HandleFunc("/diagrams/{diagramId}", storeHandler.Get).Methods("GET")
	api.HandleFunc("/diagrams/{diagramId}", storeHandler.Rename).Methods("PUT")
	api.HandleFunc("/diagrams/{diagramId}", storeHandler.Delete).Methods("DELETE")
	api.HandleFunc("/diagrams/{diagramId}/invite", storeHandler.Invite).Methods("POST")
	api.HandleFunc("/diagrams/{diagramId}/members", storeHandler.ListMembers).Methods("GET")
	api.HandleFunc("/diagrams/{diagramId}/members/{userId}", storeHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/diagrams/{diagramId}/document", storeHandler.GetLatestDocument).Methods("GET")
	api.HandleFunc("/diagrams/{diagramId}/versions", storeHandler.ListVersions).Methods("GET")
	api.HandleFunc("/diagrams/{diagramId}/versions/{version}", storeHandler.GetDocumentVersion).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/diagram/{diagramId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, storeService)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		slog.Info("saving all documents...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, storeSvc *store.Service) {
	vars := mux.Vars(r)
	diagramID := vars["diagramId"]

	var userID string
	var displayName string

	// The playground diagram allows anonymous access
	const playgroundDiagramID = "diag_playground"
	if diagramID == playgroundDiagramID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Auth via query param for real diagrams
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if !storeSvc.IsMember(r.Context(), diagramID, userID) {
			http.Error(w, "not a diagram member", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:5173", "localhost:3000"},
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, diagramID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
