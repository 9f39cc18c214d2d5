package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"sendsmart/internal/advisor"
	"sendsmart/internal/cache"
	"sendsmart/internal/config"
	"sendsmart/internal/db"
	"sendsmart/internal/ml/registry"
	"sendsmart/internal/predictor"
	"sendsmart/internal/repository"
	"sendsmart/internal/service"
	"sendsmart/internal/tui"
	"sendsmart/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc        = godotenv.Load
	loadConfigFunc     = config.Load
	initPostgresFunc   = db.InitPostgres
	initRedisFunc      = cache.InitRedis
	initTracerFunc     = tracing.InitTracer
	newRateRepoFunc    = repository.NewRateRepository
	newMacroRepoFunc   = repository.NewMacroRepository
	newRegistryFunc    = registry.NewRepository
	newPredictorFunc   = predictor.NewService
	newRateServiceFunc = service.NewRateService
	newWishServerFunc  = wish.NewServer
	setupSignalNotify  = ossignal.Notify
	waitForSignalFunc  = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Repositories and services
	rateRepo := newRateRepoFunc(db.Pool, tracer)
	macroRepo := newMacroRepoFunc(db.Pool, tracer)
	modelRegistry := newRegistryFunc(db.Pool, tracer)

	var narrator predictor.Narrator
	if cfg.OpenAIAPIKey != "" {
		narrator = advisor.NewAdvisorService(tracer, advisor.NewOpenAIClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
		log.Println("SSH narration enabled")
	}

	predictorService := newPredictorFunc(tracer, rateRepo, macroRepo, macroRepo, modelRegistry, narrator)
	rateService := newRateServiceFunc(tracer, predictorService, rateRepo, cache.Client)

	// Build Wish SSH server. The dashboard is read-only, so any public
	// key is accepted; the fingerprint is only logged.
	addr := fmt.Sprintf("%s:%d", cfg.SSHHost, cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKey),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			log.Printf("SSH session: user=%s fingerprint=%s", ctx.User(), gossh.FingerprintSHA256(key))
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewAppModel(tui.Services{
					Scores:   rateService,
					Username: s.User(),
				})
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}
