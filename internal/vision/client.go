package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-3-5-haiku-latest"
)

const simplePrompt = "Classify the main food/beverage item in this image. " +
	"Return exactly one lowercase word with no punctuation: " +
	"fruit or snack or drink."

const detailedPrompt = `Analyze the main food or beverage item in this image.
Return ONLY a JSON object with these fields (no other text):
{
  "category": "fruit" or "snack" or "drink",
  "item_name": "specific item name, e.g. Granny Smith Apple, Doritos Cool Ranch, Dasani Water",
  "estimated_weight_lbs": estimated weight in pounds as a number (e.g. 0.3),
  "estimated_expiry": "YYYY-MM-DD if visible on packaging, otherwise null"
}`

// Client calls the Anthropic Messages API to classify donation frames.
// The external call has no inherent bound, so the timeout is enforced here.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: anthropicAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicContentPart `json:"content"`
}

type anthropicContentPart struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify returns just the category for an image, using the one-word prompt.
func (c *Client) Classify(ctx context.Context, imageData []byte) (Category, error) {
	text, err := c.sendImage(ctx, imageData, simplePrompt, 10)
	if err != nil {
		return "", err
	}
	return ParseCategory(text), nil
}

// ClassifyDetailed returns the category plus item metadata. Malformed model
// output degrades to the fallback category, never to an error; only transport
// and API failures are surfaced.
func (c *Client) ClassifyDetailed(ctx context.Context, imageData []byte) (*Classification, error) {
	text, err := c.sendImage(ctx, imageData, detailedPrompt, 256)
	if err != nil {
		return nil, err
	}
	return parseDetailedResponse(text), nil
}

func (c *Client) sendImage(ctx context.Context, imageData []byte, prompt string, maxTokens int) (string, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(imageData)

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContentPart{
					{
						Type: "image",
						Source: &anthropicImageSource{
							Type:      "base64",
							MediaType: "image/jpeg",
							Data:      imageBase64,
						},
					},
					{
						Type: "text",
						Text: prompt,
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return apiResp.Content[0].Text, nil
}
