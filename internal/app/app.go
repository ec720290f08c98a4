package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/grindflow-app/grindflow-api/internal/config"
	db "github.com/grindflow-app/grindflow-api/internal/core/database"
	"github.com/grindflow-app/grindflow-api/internal/core/extract"
	"github.com/grindflow-app/grindflow-api/internal/core/llm"
	objectclient "github.com/grindflow-app/grindflow-api/internal/core/object-client"
	"github.com/grindflow-app/grindflow-api/internal/core/pipeline"
	"github.com/grindflow-app/grindflow-api/internal/services"
)

type App struct {
	DBClient     db.DbClient
	ObjectClient objectclient.ObjectClient
	SDK          *llm.GeminiSDK
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	sdk, err := llm.NewGeminiSDK(appCtx, cfg.AIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the gemini client, %w", err)
	}

	// Candidate order: configured model first, then widely available ones.
	candidates := dedupe([]string{cfg.GenModel, "gemini-2.5-flash", "gemini-1.5-pro", "gemini-pro"})

	invoker := &pipeline.Invoker{
		Primary:  sdk,
		Fallback: llm.NewGeminiHTTP(cfg.AIAPIKey),
		Models:   candidates,
		Backoff:  pipeline.DefaultBackoff,
	}

	extractor := extract.NewDocconvExtractor(false)
	textService := services.NewTextService(dbClient, objClient, extractor, cfg.BucketName)

	server := NewServer(cfg, dbClient, objClient, textService, invoker)

	return &App{
		DBClient:     dbClient.(*db.DatabaseClient),
		ObjectClient: objClient.(*objectclient.S3Client),
		SDK:          sdk,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.SDK != nil {
		_ = a.SDK.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}

func dedupe(models []string) []string {
	seen := make(map[string]bool, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
