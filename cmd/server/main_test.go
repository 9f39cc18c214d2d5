package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"sendsmart/internal/config"
	"sendsmart/internal/job"
	"sendsmart/internal/ml/registry"
	"sendsmart/internal/repository"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewRateRepo := newRateRepoFunc
	origNewMacroRepo := newMacroRepoFunc
	origNewRegistry := newRegistryFunc
	origNewRefreshJob := newScoreRefreshJobFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{RedisURL: "", DatabaseURL: "", HTTPPort: 8080, MLTrainHourUTC: 1, ScoreRefreshSecs: 3600}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newRateRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.RateRepository {
		return nil
	}
	newMacroRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.MacroRepository {
		return nil
	}
	newRegistryFunc = func(registry.PgxPool, trace.Tracer) *registry.Repository {
		return nil
	}
	newScoreRefreshJobFunc = func(tracer trace.Tracer, _ job.ScoreRefresher, _ time.Duration) *job.ScoreRefreshJob {
		return job.NewScoreRefreshJob(tracer, nil, time.Hour)
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newRateRepoFunc = origNewRateRepo
		newMacroRepoFunc = origNewMacroRepo
		newRegistryFunc = origNewRegistry
		newScoreRefreshJobFunc = origNewRefreshJob
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
