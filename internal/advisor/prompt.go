package advisor

import (
	"fmt"
	"strings"

	"sendsmart/internal/domain"
)

const narrationPhilosophy = `You explain remittance timing recommendations to people sending money abroad. You are given a finished recommendation with its supporting numbers; your job is to restate it in plain language, NOT to second-guess it.

Rules:
- Two to three sentences, no jargon. The reader is not a trader.
- Always state the recommendation (send now, wait, or no strong signal) and the single most important reason.
- Reference the actual numbers you are given: where the rate sits in its recent range, the model probability, the trend.
- Never invent numbers or market events. If a field is missing, leave it out.
- Mention low confidence when the confidence score is under 0.3.
- Never promise an outcome. Rates can move against any forecast.`

// FormatScoreContext renders one score result as the user message for
// the narration call.
func FormatScoreContext(result domain.ScoreResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Corridor: %s -> %s\n", result.From, result.To))
	sb.WriteString(fmt.Sprintf("Current rate: %.6f\n", result.CurrentRate))
	sb.WriteString(fmt.Sprintf("Recommendation: %s\n", result.Recommendation))
	sb.WriteString(fmt.Sprintf("Timing score: %.2f (send-now threshold 0.72, wait threshold 0.35)\n", result.TimingScore))
	sb.WriteString(fmt.Sprintf("Model probability that today is a top day in the next two weeks: %.0f%%\n", 100*result.ModelProb))
	sb.WriteString(fmt.Sprintf("Position in 60-day range: %.0f%% (100%% = best rate of the period)\n", 100*result.RangePercentile))
	sb.WriteString(fmt.Sprintf("Confidence: %.2f\n", result.Confidence))

	summary := result.MarketSummary
	sb.WriteString(fmt.Sprintf("Two-month range: %.6f to %.6f, average %.6f\n",
		summary.TwoMonthLow, summary.TwoMonthHigh, summary.TwoMonthAvg))
	sb.WriteString(fmt.Sprintf("Trend: %s, volatility: %s\n", summary.Trend, summary.Volatility))
	if summary.UnusualActivity {
		sb.WriteString("Note: the latest daily move is unusual for this corridor.\n")
	}
	return sb.String()
}
