package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/grindflow-app/grindflow-api/internal/api/handlers"
	appMiddleware "github.com/grindflow-app/grindflow-api/internal/api/middlewares"
	"github.com/grindflow-app/grindflow-api/internal/config"
	"github.com/grindflow-app/grindflow-api/internal/core"
	"github.com/grindflow-app/grindflow-api/internal/core/pipeline"
	"github.com/grindflow-app/grindflow-api/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, texts *services.TextService, invoker *pipeline.Invoker) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JwtSecret)
	docHandler := handlers.NewDocumentHandler(db, obj, texts, cfg)
	studyHandler := handlers.NewStudyHandler(db, texts, invoker, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Non-interactive tasks run the full backoff schedule; give them room.
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://grindflow.vercel.app"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTAuth(cfg.JwtSecret))

			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/documents/{id}", docHandler.GetDocument)
			protected.Delete("/documents/{id}", docHandler.DeleteDocument)
			protected.Get("/text/{id}", docHandler.GetDocumentText)

			protected.Post("/analyze", studyHandler.Analyze)
			protected.Post("/quiz", studyHandler.Quiz)
			protected.Post("/studyflow", studyHandler.Studyflow)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
