package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sendsmart/internal/advisor"
	"sendsmart/internal/cache"
	"sendsmart/internal/config"
	"sendsmart/internal/db"
	"sendsmart/internal/handler"
	"sendsmart/internal/job"
	"sendsmart/internal/ml/registry"
	"sendsmart/internal/ml/training"
	"sendsmart/internal/predictor"
	"sendsmart/internal/repository"
	"sendsmart/internal/service"
	"sendsmart/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "sendsmart/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newRateRepoFunc        = repository.NewRateRepository
	newMacroRepoFunc       = repository.NewMacroRepository
	newRegistryFunc        = registry.NewRepository
	newPredictorFunc       = predictor.NewService
	newRateServiceFunc     = service.NewRateService
	newTrainingFunc        = training.NewService
	newTrainingJobFunc     = job.NewTrainingJob
	newScoreRefreshJobFunc = job.NewScoreRefreshJob
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           SendSmart API
// @version         1.0
// @description     Remittance timing recommendations backed by an exchange-rate ML ensemble.

// @host      localhost:8080
// @BasePath  /
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

	// Create repositories and run migrations
	rateRepo := newRateRepoFunc(db.Pool, tracer)
	macroRepo := newMacroRepoFunc(db.Pool, tracer)
	modelRegistry := newRegistryFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := rateRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run rate migrations: %v", err)
		}
		if err := macroRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run macro migrations: %v", err)
		}
	}

	// Narration is optional; without an API key the predictor falls
	// back to its heuristic reasoning strings.
	var narrator predictor.Narrator
	if cfg.OpenAIAPIKey != "" {
		narrator = advisor.NewAdvisorService(tracer, advisor.NewOpenAIClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
	}

	predictorService := newPredictorFunc(tracer, rateRepo, macroRepo, macroRepo, modelRegistry, narrator)
	rateService := newRateServiceFunc(tracer, predictorService, rateRepo, cache.Client)
	trainingService := newTrainingFunc(tracer, rateRepo, macroRepo, macroRepo, modelRegistry, training.Config{
		TrainWindowDays: cfg.MLTrainWindowDays,
		MinTrainSamples: cfg.MLMinTrainSamples,
	})

	// Background jobs, stopped by ctx cancel
	trainingJob := newTrainingJobFunc(tracer, trainingService, cfg.MLTrainHourUTC)
	go trainingJob.Start(ctx)
	refreshJob := newScoreRefreshJobFunc(tracer, rateService, time.Duration(cfg.ScoreRefreshSecs)*time.Second)
	go refreshJob.Start(ctx)

	// Create handlers and routes
	h := newHandlerFunc(tracer, rateService, trainingService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("sendsmart"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
