// Package app builds the object graph shared by the server and the command
// line tools.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vbonduro/sitecheck/internal/auth"
	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/blobstore/local"
	"github.com/vbonduro/sitecheck/internal/config"
	"github.com/vbonduro/sitecheck/internal/db"
	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/docstore/rediscache"
	"github.com/vbonduro/sitecheck/internal/notify"
	"github.com/vbonduro/sitecheck/internal/notify/mqttnotify"
	"github.com/vbonduro/sitecheck/internal/service"
	"github.com/vbonduro/sitecheck/internal/store"
	"github.com/vbonduro/sitecheck/internal/trade"
	"github.com/vbonduro/sitecheck/internal/vision"
	claudevision "github.com/vbonduro/sitecheck/internal/vision/claude"
	ollamavision "github.com/vbonduro/sitecheck/internal/vision/ollama"
	"github.com/vbonduro/sitecheck/internal/web"
)

type App struct {
	Docs   docstore.Store
	Blobs  blobstore.Store
	Trades *trade.Registry

	Projects       *service.ProjectService
	Inspections    *service.InspectionService
	Reports        *service.ReportService
	WorkLogs       *service.WorkLogService
	CommonPlumbing *service.CommonPlumbingService
	WorkReports    *service.WorkReportService

	Auth   auth.Provider
	Admins auth.Admins

	closers []func()
	logger  *slog.Logger
}

// New opens the database (applying migrations) and wires every service from
// cfg. Callers must Close the returned App.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}
	if err := a.init(cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(cfg *config.Config) error {
	trades, err := loadTrades(cfg.TradesFile)
	if err != nil {
		return err
	}
	a.Trades = trades

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.onClose(func() {
		if err := conn.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	})

	a.Docs, err = a.newDocStore(cfg, conn)
	if err != nil {
		return err
	}

	a.Blobs, err = local.New(cfg.BlobPath, cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	a.Auth = newAuthProvider(cfg, a.logger)
	a.Admins = auth.ParseAdmins(cfg.AdminEmails)

	publisher, err := a.newPublisher(cfg)
	if err != nil {
		return err
	}

	a.WorkLogs = service.NewWorkLogService(a.Docs, a.logger)
	a.Projects = service.NewProjectService(a.Docs, trades, a.logger)
	a.Reports = service.NewReportService(a.Docs, trades, a.logger)
	a.Inspections = service.NewInspectionService(a.Docs, a.Blobs, trades, a.WorkLogs, publisher, newVisionAnalyzer(cfg, a.logger), a.logger)
	a.CommonPlumbing = service.NewCommonPlumbingService(a.Docs, a.Blobs, a.WorkLogs, a.logger)
	a.WorkReports = service.NewWorkReportService(a.Docs, a.Blobs, a.WorkLogs, a.logger)
	return nil
}

// Server returns the HTTP front end over the wired services.
func (a *App) Server() *web.Server {
	return web.NewServer(web.Deps{
		Projects:       a.Projects,
		Inspections:    a.Inspections,
		Reports:        a.Reports,
		WorkLogs:       a.WorkLogs,
		CommonPlumbing: a.CommonPlumbing,
		WorkReports:    a.WorkReports,
		Blobs:          a.Blobs,
		Auth:           a.Auth,
		Admins:         a.Admins,
	}, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(f func()) {
	a.closers = append(a.closers, f)
}

func loadTrades(path string) (*trade.Registry, error) {
	if path == "" {
		return trade.Default()
	}
	return trade.Load(path)
}

func (a *App) newDocStore(cfg *config.Config, conn *sql.DB) (docstore.Store, error) {
	docs, err := store.NewDocumentStore(conn, cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr == "" {
		return docs, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.onClose(func() {
		if err := client.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		a.logger.Warn("redis unreachable, reads will fall through to the database", "addr", cfg.RedisAddr, "error", err)
	}
	a.logger.Info("using redis document cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return rediscache.New(docs, client, cfg.CacheTTL, a.logger), nil
}

func newAuthProvider(cfg *config.Config, logger *slog.Logger) auth.Provider {
	if cfg.AuthDisabled {
		logger.Warn("authentication disabled, tokens are trusted as e-mail addresses")
		return auth.Static{}
	}
	return auth.NewClient(cfg.AuthBaseURL, cfg.AuthAPIKey, logger)
}

func (a *App) newPublisher(cfg *config.Config) (notify.Publisher, error) {
	if cfg.MQTTBroker == "" {
		return notify.Nop{}, nil
	}
	p, err := mqttnotify.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(p.Close)
	a.logger.Info("publishing status changes over mqtt", "broker", cfg.MQTTBroker)
	return p, nil
}

// newVisionAnalyzer returns nil when photo analysis is disabled or
// misconfigured.
func newVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.Analyzer {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.ClaudeBaseURL)
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("photo analysis disabled")
		return nil
	}
}
