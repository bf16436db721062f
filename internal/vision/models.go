package vision

import (
	"context"
	"encoding/json"
	"strings"
)

// Classifier is the narrow interface the pipeline depends on.
type Classifier interface {
	ClassifyDetailed(ctx context.Context, imageData []byte) (*Classification, error)
}

// Classification is the structured result of a detailed vision call.
type Classification struct {
	Category           Category `json:"category"`
	ItemName           string   `json:"item_name"`
	EstimatedWeightLbs *float64 `json:"estimated_weight_lbs"`
	EstimatedExpiry    string   `json:"estimated_expiry"`
}

// detailedPayload mirrors the JSON the model is asked to return. Fields are
// decoded loosely so a partially-valid payload still yields a usable result.
type detailedPayload struct {
	Category           string      `json:"category"`
	ItemName           string      `json:"item_name"`
	EstimatedWeightLbs *float64    `json:"estimated_weight_lbs"`
	EstimatedExpiry    interface{} `json:"estimated_expiry"`
}

// parseDetailedResponse turns a raw model reply into a Classification.
// The model sometimes wraps the JSON in markdown fences or returns prose;
// both degrade to category extraction rather than an error.
func parseDetailedResponse(text string) *Classification {
	cleaned := stripMarkdownFences(text)

	var payload detailedPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return &Classification{
			Category: ParseCategory(cleaned),
			ItemName: "unknown",
		}
	}

	result := &Classification{
		Category:           ParseCategory(payload.Category),
		ItemName:           payload.ItemName,
		EstimatedWeightLbs: payload.EstimatedWeightLbs,
	}
	if result.ItemName == "" {
		result.ItemName = "unknown"
	}
	if expiry, ok := payload.EstimatedExpiry.(string); ok {
		result.EstimatedExpiry = expiry
	}
	return result
}

func stripMarkdownFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if idx := strings.Index(t, "\n"); idx >= 0 {
		t = t[idx+1:]
	}
	if idx := strings.LastIndex(t, "```"); idx >= 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}
