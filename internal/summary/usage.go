package summary

import (
	"math"

	"scribe/internal/config"
	"scribe/internal/services/llm"
)

// Currency of every computed cost.
const Currency = "USD"

// Pricing holds unit prices.
type Pricing struct {
	WhisperPerMinute        float64
	LLMPromptPerMillion     float64
	LLMCompletionPerMillion float64
}

// PricingFromConfig maps the [pricing] section.
func PricingFromConfig(cfg config.Pricing) Pricing {
	return Pricing{
		WhisperPerMinute:        cfg.WhisperPerMinute,
		LLMPromptPerMillion:     cfg.LLMPromptPerMillion,
		LLMCompletionPerMillion: cfg.LLMCompletionPerMillion,
	}
}

// Usage is the report's cost block.
type Usage struct {
	Duration    float64   `json:"duration"`
	WhisperCost float64   `json:"whisper_cost"`
	LLMTokens   llm.Usage `json:"llm_tokens"`
	LLMCost     float64   `json:"llm_cost"`
	TotalCost   float64   `json:"total_cost"`
	Currency    string    `json:"currency"`
}

// ComputeUsage prices a task. Transcription minutes are only billed for the
// cloud backend. Costs are rounded to 6 decimals and duration to 2.
func ComputeUsage(duration float64, cloud bool, tokens llm.Usage, pricing Pricing) Usage {
	whisper := 0.0
	if cloud {
		whisper = duration / 60 * pricing.WhisperPerMinute
	}
	llmCost := float64(tokens.PromptTokens)/1e6*pricing.LLMPromptPerMillion +
		float64(tokens.CompletionTokens)/1e6*pricing.LLMCompletionPerMillion
	return Usage{
		Duration:    round(duration, 2),
		WhisperCost: round(whisper, 6),
		LLMTokens:   tokens,
		LLMCost:     round(llmCost, 6),
		TotalCost:   round(whisper+llmCost, 6),
		Currency:    Currency,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
