package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/training"
	"sendsmart/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type scorerStub struct {
	result *domain.ScoreResult
	err    error
}

func (s scorerStub) Score(_ context.Context, from, to string, _ time.Time) (*domain.ScoreResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.From = from
	out.To = to
	return &out, nil
}

type rateRepoStub struct {
	corridors []domain.Corridor
	history   []domain.RateObservation
	err       error
}

func (s rateRepoStub) ListCorridors(context.Context) ([]domain.Corridor, error) {
	return s.corridors, s.err
}

func (s rateRepoStub) ListRecentHistory(context.Context, string, string, int) ([]domain.RateObservation, error) {
	return s.history, s.err
}

type trainerStub struct {
	result *training.TrainResult
	err    error
}

func (s trainerStub) Train(context.Context, time.Time) (*training.TrainResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestRouter(scorer service.Scorer, repo service.RateRepository, trainer TrainingRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")
	rateService := service.NewRateService(tracer, scorer, repo, nil)
	h := New(tracer, rateService, trainer)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func TestHealth(t *testing.T) {
	router := newTestRouter(scorerStub{}, rateRepoStub{}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPredictSuccess(t *testing.T) {
	scorer := scorerStub{result: &domain.ScoreResult{
		CurrentRate:    83.2,
		TimingScore:    0.8,
		Recommendation: domain.RecommendationSendNow,
	}}
	router := newTestRouter(scorer, rateRepoStub{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/predict",
		strings.NewReader(`{"from_currency":"usd","to_currency":"inr"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body domain.ScoreResult
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.From != "USD" || body.To != "INR" {
		t.Fatalf("corridor not normalized in response: %s/%s", body.From, body.To)
	}
	if body.Recommendation != domain.RecommendationSendNow {
		t.Fatalf("unexpected recommendation: %s", body.Recommendation)
	}
}

func TestPredictValidation(t *testing.T) {
	router := newTestRouter(scorerStub{}, rateRepoStub{}, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"from_currency":"USD"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing field, got %d", w.Code)
	}
}

func TestPredictErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("USD->XXX: %w", domain.ErrUnsupportedCorridor), http.StatusNotFound},
		{fmt.Errorf("USD->INR has 12 rows: %w", domain.ErrInsufficientHistory), http.StatusBadRequest},
		{domain.ErrModelNotTrained, http.StatusServiceUnavailable},
		{errors.New("postgres down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := newTestRouter(scorerStub{err: tc.err}, rateRepoStub{}, nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/predict",
			strings.NewReader(`{"from_currency":"USD","to_currency":"INR"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}

func TestListCorridors(t *testing.T) {
	repo := rateRepoStub{corridors: []domain.Corridor{{From: "USD", To: "INR"}, {From: "EUR", To: "TRY"}}}
	router := newTestRouter(scorerStub{}, repo, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/corridors", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Corridors []domain.Corridor `json:"corridors"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Count != 2 || len(body.Corridors) != 2 {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestCorridorHistory(t *testing.T) {
	repo := rateRepoStub{history: []domain.RateObservation{{Rate: 83.1}, {Rate: 83.2}}}
	router := newTestRouter(scorerStub{}, repo, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/corridors/USD/INR/history?days=30", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Count != 2 {
		t.Fatalf("unexpected count: %d", body.Count)
	}
}

func TestTriggerTrainingUnavailable(t *testing.T) {
	router := newTestRouter(scorerStub{}, rateRepoStub{}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ml/train", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a trainer, got %d", w.Code)
	}
}

func TestTriggerTrainingSuccess(t *testing.T) {
	trainer := trainerStub{result: &training.TrainResult{
		ModelKey:     "timing_ensemble_v2",
		Version:      4,
		Corridors:    3,
		SampleCount:  5000,
		AUC:          0.57,
		BlendWeight:  0.55,
		Promoted:     false,
		PromoteError: errors.New("walk-forward gate rejected candidate"),
	}}
	router := newTestRouter(scorerStub{}, rateRepoStub{}, trainer)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ml/train", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Status       string  `json:"status"`
		ModelKey     string  `json:"model_key"`
		Version      int     `json:"version"`
		AUC          float64 `json:"auc"`
		Promoted     bool    `json:"promoted"`
		PromoteError string  `json:"promote_error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Status != "ok" || body.ModelKey != "timing_ensemble_v2" || body.Version != 4 {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.Promoted || body.PromoteError == "" {
		t.Fatalf("promotion fields lost: %+v", body)
	}
}

func TestTriggerTrainingFailure(t *testing.T) {
	router := newTestRouter(scorerStub{}, rateRepoStub{}, trainerStub{err: errors.New("not enough samples")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ml/train", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
