package domain

import (
	"testing"
)

func TestNewCorridorNormalizes(t *testing.T) {
	c := NewCorridor(" usd ", "inr")
	if c.From != "USD" || c.To != "INR" {
		t.Errorf("corridor not normalized: %+v", c)
	}
	if c.Key() != "USD_INR" {
		t.Errorf("unexpected key: %s", c.Key())
	}
	if c.String() != "USD->INR" {
		t.Errorf("unexpected string form: %s", c.String())
	}
}

func TestFeatureRowVector(t *testing.T) {
	row := FeatureRow{
		Values: map[string]float64{
			"ret_1d":       0.002,
			"range_pos_60": 0.8,
		},
	}

	vec := row.Vector([]string{"range_pos_60", "ir_diff", "ret_1d"})
	if len(vec) != 3 {
		t.Fatalf("expected 3 values, got %d", len(vec))
	}
	if vec[0] != 0.8 || vec[2] != 0.002 {
		t.Errorf("values not assembled in column order: %v", vec)
	}
	if vec[1] != 0 {
		t.Errorf("missing column should encode as 0, got %f", vec[1])
	}
}

func TestRecommendationConstants(t *testing.T) {
	if RecommendationSendNow != "SEND_NOW" || RecommendationWait != "WAIT" || RecommendationNeutral != "NEUTRAL" {
		t.Errorf("recommendation constants not set correctly: %s %s %s",
			RecommendationSendNow, RecommendationWait, RecommendationNeutral)
	}
}

func TestScoreResultFields(t *testing.T) {
	r := ScoreResult{
		From:           "USD",
		To:             "INR",
		CurrentRate:    83.42,
		TimingScore:    0.81,
		Recommendation: RecommendationSendNow,
	}
	if r.From != "USD" || r.To != "INR" || r.Recommendation != RecommendationSendNow {
		t.Errorf("ScoreResult fields not set correctly: %+v", r)
	}
}
