package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/analysis"
	appchat "github.com/bryanwahyu/radiology-ai/internal/application/chat"
	"github.com/bryanwahyu/radiology-ai/internal/application/clinical"
	"github.com/bryanwahyu/radiology-ai/internal/application/profile"
	appscans "github.com/bryanwahyu/radiology-ai/internal/application/scans"
	apptopic "github.com/bryanwahyu/radiology-ai/internal/application/topic"
	"github.com/bryanwahyu/radiology-ai/internal/config"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/analyst"
	"github.com/bryanwahyu/radiology-ai/internal/domain/chat"
	"github.com/bryanwahyu/radiology-ai/internal/domain/reports"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scanerrors"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/domain/topic"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/offline"
	openaiClient "github.com/bryanwahyu/radiology-ai/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/radiology-ai/internal/infra/db/mysql"
	"github.com/bryanwahyu/radiology-ai/internal/infra/db/postgres"
	"github.com/bryanwahyu/radiology-ai/internal/infra/httpserver"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
	"github.com/bryanwahyu/radiology-ai/internal/infra/metrics"
	minioStore "github.com/bryanwahyu/radiology-ai/internal/infra/storage"
	"github.com/bryanwahyu/radiology-ai/internal/middleware"
)

// model is what the AI provider offers: image analysis and text generation.
type model interface {
	ai.Analyzer
	ai.Generator
}

type repositories struct {
	scans    scans.Repository
	audit    analyst.Repository
	failures scanerrors.Repository
	chat     chat.Repository
	reports  reports.Repository
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		os.Exit(1)
	}

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", logging.Err(err))
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repos, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer db.Close()

	store, err := minioStore.New(ctx, minioStore.Options{
		Endpoint:      cfg.Minio.Endpoint,
		Region:        cfg.Minio.Region,
		Bucket:        cfg.Minio.BucketName,
		AccessKey:     cfg.Minio.AccessKey,
		SecretKey:     cfg.Minio.SecretKey,
		UseSSL:        cfg.Minio.UseSSL,
		PresignExpiry: cfg.Minio.PresignExpiry,
	})
	if err != nil {
		return fmt.Errorf("minio init: %w", err)
	}

	var llm model
	if cfg.AI.APIKey == "" {
		log.Warn("ai.api_key not set, scans will be marked for manual review")
		llm = offline.Client{}
	} else {
		llm = openaiClient.NewClient(openaiClient.Config{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			VisionModel: cfg.AI.VisionModel,
			MaxTokens:   cfg.AI.MaxTokens,
		}, store)
	}

	lex, err := config.LoadLexicon(cfg.Topic.LexiconPath)
	if err != nil {
		return err
	}
	gate, err := topic.NewGate(lex)
	if err != nil {
		return err
	}

	creds, err := credentials(cfg.Auth.Keys)
	if err != nil {
		return err
	}

	mm := metrics.NewManager()
	clock := application.SystemClock{}

	orch := &analysis.Orchestrator{
		Analyzer:    llm,
		Scans:       repos.scans,
		Audit:       repos.audit,
		Failures:    repos.failures,
		Clock:       clock,
		Log:         log.Named("analysis"),
		Metrics:     mm,
		Timeout:     cfg.Analysis.Timeout,
		Concurrency: cfg.Analysis.Concurrency,
		DefaultRisk: scans.DefaultRiskLevel,
	}
	topicSvc := &apptopic.Service{
		Gate:       gate,
		Generator:  llm,
		ModelCheck: cfg.Chat.ModelTopicCheck,
		Log:        log.Named("topic"),
		Metrics:    mm,
		Timeout:    cfg.Chat.Timeout,
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
	go limiter.Cleanup(ctx, 5*time.Minute, 10*time.Minute)

	handler := httpserver.NewRouter(httpserver.Deps{
		Scans: &appscans.Service{
			Repo:              repos.scans,
			Images:            store,
			Analysis:          orch,
			Clock:             clock,
			Log:               log.Named("scans"),
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		},
		Profile: &profile.Service{
			Scans:        repos.scans,
			Analysis:     orch,
			Generator:    llm,
			Clock:        clock,
			Log:          log.Named("profile"),
			Metrics:      mm,
			ProfileLimit: cfg.Analysis.ProfileLimit,
			// narasi ikut batas waktu analisis
			NarrativeTimeout: cfg.Analysis.Timeout,
		},
		Chat: &appchat.Service{
			Repo:          repos.chat,
			Scans:         repos.scans,
			Topic:         topicSvc,
			Generator:     llm,
			Clock:         clock,
			Log:           log.Named("chat"),
			Metrics:       mm,
			HistoryWindow: cfg.Chat.HistoryWindow,
			Timeout:       cfg.Chat.Timeout,
		},
		Topic: topicSvc,
		Clinical: &clinical.Service{
			Generator: llm,
			Scans:     repos.scans,
			Reports:   repos.reports,
			Analysis:  orch,
			Clock:     clock,
			Log:       log.Named("clinical"),
			Metrics:   mm,
			Timeout:   cfg.AI.Timeout,
		},
		Credentials: creds,
		Limiter:     limiter,
		Metrics:     mm,
		Health: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
			"storage":  middleware.CheckerFunc(store.Check),
		},
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// analisis batch bisa lama, jadi write timeout ikut timeout analisis
		WriteTimeout: 2*cfg.Analysis.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logging.String("addr", addr), logging.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", logging.Err(err))
	}
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, repositories{}, err
		}
		return db, repositories{
			scans:    postgres.NewScanRepository(db),
			audit:    postgres.NewAnalystRepository(db),
			failures: postgres.NewScanErrorRepository(db),
			chat:     postgres.NewChatRepository(db),
			reports:  postgres.NewReportRepository(db),
		}, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), mysqlp.Pool{})
		if err != nil {
			return nil, repositories{}, err
		}
		return db, repositories{
			scans:    mysqlp.NewScanRepository(db),
			audit:    mysqlp.NewAnalystRepository(db),
			failures: mysqlp.NewScanErrorRepository(db),
			chat:     mysqlp.NewChatRepository(db),
			reports:  mysqlp.NewReportRepository(db),
		}, nil
	}
}

func credentials(keys []config.APIKey) ([]middleware.Credential, error) {
	out := make([]middleware.Credential, 0, len(keys))
	for _, k := range keys {
		role := application.Role(k.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: auth key for %q has unknown role %q", config.ErrInvalidConfig, k.Subject, k.Role)
		}
		out = append(out, middleware.Credential{
			Key:       k.Key,
			Principal: application.Principal{Subject: k.Subject, Role: role},
		})
	}
	return out, nil
}
