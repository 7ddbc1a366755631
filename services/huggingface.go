package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"tripcopilot/models"
)

// NarrativeClient writes a short prose overview of a finished plan with a
// HuggingFace text-generation model.
type NarrativeClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewNarrativeClient(apiKey, model, baseURL string) *NarrativeClient {
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.3"
	}
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	return &NarrativeClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(60 * time.Second),
	}
}

// Enabled reports whether an API key is configured.
func (c *NarrativeClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfResponse []struct {
	GeneratedText string `json:"generated_text"`
}

func (c *NarrativeClient) Narrate(ctx context.Context, req *models.PlanRequest, plan *models.PlanResponse) (string, error) {
	if !c.Enabled() {
		return "", errors.New("huggingface API key not configured")
	}

	jsonBody, err := json.Marshal(hfRequest{
		Inputs: buildNarrativePrompt(req, plan),
		Parameters: hfParameters{
			MaxNewTokens:   300,
			Temperature:    0.6,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", errors.WithStack(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+c.model, bytes.NewReader(jsonBody))
	if err != nil {
		return "", errors.WithStack(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", errors.New("AI model is loading, please retry in a few seconds")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("HuggingFace API error (%d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var hfResp hfResponse
	if err := json.Unmarshal(body, &hfResp); err != nil {
		return "", errors.Wrap(err, "failed to parse AI response")
	}
	if len(hfResp) == 0 || strings.TrimSpace(hfResp[0].GeneratedText) == "" {
		return "", errors.New("empty response from AI")
	}
	return strings.TrimSpace(hfResp[0].GeneratedText), nil
}

func buildNarrativePrompt(req *models.PlanRequest, plan *models.PlanResponse) string {
	var b strings.Builder
	b.WriteString("[INST] You are a helpful travel assistant. Write a short, friendly overview of this trip.\n\n")
	fmt.Fprintf(&b, "Trip: from %s to %s | %s to %s | %d traveller(s) | Budget: €%d | Pace: %s\n",
		req.Origin, strings.Join(req.Cities, ", "), req.StartDate, req.EndDate,
		req.PartySize, req.BudgetEUR, req.Pace)
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(req.Interests, ", "))
	}
	fmt.Fprintf(&b, "Estimated total: €%.0f\n\nDays:\n", plan.TotalCostEstimateEUR)

	for i, d := range plan.Days {
		if i >= 7 {
			break
		}
		line := fmt.Sprintf("  %s in %s", d.Date, d.City)
		if d.Weather != nil {
			line += fmt.Sprintf(" (%s, %.0f°C)", d.Weather.Summary, d.Weather.HighC)
		}
		b.WriteString(line + "\n")
	}

	lang := "English"
	if req.Language == "fr" {
		lang = "French"
	}
	fmt.Fprintf(&b, "\nIn 120 words or fewer, in %s, suggest how to enjoy each city. Be direct. [/INST]", lang)
	return b.String()
}
