package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/binsight/go-binsight/internal/httpc"
	"github.com/binsight/go-binsight/internal/log"
)

// defaultGeminiURL is the Gemini Flash generateContent endpoint.
const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// sortPrompt asks the model for strict JSON so the response can be decoded
// directly. The category list mirrors ParseCategory.
const sortPrompt = `You are a waste-sorting assistant. Look at the single most prominent ` +
	`object in this image and decide which bin it belongs in. Respond with JSON only: ` +
	`{"object": "<short name>", "bin": "<Landfill|Recycle|Compost|NotApplicable>", "reason": "<one short sentence>"}. ` +
	`Use NotApplicable when no sortable object is visible (e.g. just a person, a wall, or an empty scene).`

// Gemini classifies frames with Gemini Flash over the REST API.
type Gemini struct {
	apiKey string
	url    string
	client *http.Client
}

// NewGemini creates a Gemini-backed classifier.
func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		apiKey: apiKey,
		url:    defaultGeminiURL,
		client: httpc.NewClient(15 * time.Second),
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (g *Gemini) WithBaseURL(url string) *Gemini {
	g.url = url
	return g
}

// Classify sends the JPEG to Gemini and decodes the bin decision.
func (g *Gemini) Classify(ctx context.Context, jpeg []byte) (Result, error) {
	if g.apiKey == "" {
		return Result{}, ErrNoAPIKey
	}
	if len(jpeg) == 0 {
		return Result{}, ErrEmptyImage
	}

	reqID := uuid.NewString()
	start := time.Now()

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": sortPrompt},
					{"inline_data": map[string]string{
						"mime_type": "image/jpeg",
						"data":      base64.StdEncoding.EncodeToString(jpeg),
					}},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":        0.2,
			"maxOutputTokens":    200,
			"response_mime_type": "application/json",
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Result{}, WrapError("gemini", err)
	}

	url := fmt.Sprintf("%s?key=%s", g.url, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return Result{}, WrapError("gemini", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, WrapError("gemini", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, WrapError("gemini", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := apiErrorMessage(body)
		if msg == "" {
			msg = truncate(string(body), 200)
		}
		return Result{}, &APIError{StatusCode: resp.StatusCode, Message: msg, Provider: "gemini"}
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, WrapError("gemini", fmt.Errorf("decode response: %w (body: %s)", err, truncate(string(body), 200)))
	}

	if decoded.Error.Message != "" {
		return Result{}, &APIError{StatusCode: decoded.Error.Code, Message: decoded.Error.Message, Provider: "gemini"}
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return Result{}, ErrNoCandidates
	}

	text := decoded.Candidates[0].Content.Parts[0].Text

	var wire struct {
		Object string `json:"object"`
		Bin    string `json:"bin"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return Result{}, WrapError("gemini", fmt.Errorf("decode decision: %w (text: %s)", err, truncate(text, 200)))
	}

	result := Result{
		Object:   wire.Object,
		Category: ParseCategory(wire.Bin),
		Reason:   wire.Reason,
	}

	log.Debug("classification complete",
		"request_id", reqID,
		"object", result.Object,
		"category", result.Category,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// geminiResponse is the response structure from the Gemini API.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// apiErrorMessage pulls the error message out of an error response body.
func apiErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	json.Unmarshal(body, &errResp)
	return errResp.Error.Message
}

// truncate shortens a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// Verify Gemini implements Classifier at compile time.
var _ Classifier = (*Gemini)(nil)
