package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"Landfill", CategoryLandfill},
		{"landfill", CategoryLandfill},
		{"trash", CategoryLandfill},
		{"Recycle", CategoryRecycle},
		{"recycling", CategoryRecycle},
		{"Compost", CategoryCompost},
		{"organic", CategoryCompost},
		{"NotApplicable", CategoryNotApplicable},
		{"N/A", CategoryNotApplicable},
		{"n/a", CategoryNotApplicable},
		{"not applicable", CategoryNotApplicable},
		{"  Recycle  ", CategoryRecycle},
		{"", CategoryError},
		{"banana phone", CategoryError},
	}

	for _, tt := range tests {
		if got := ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCategory_Dispatchable(t *testing.T) {
	dispatchable := []Category{CategoryLandfill, CategoryRecycle, CategoryCompost}
	for _, c := range dispatchable {
		if !c.Dispatchable() {
			t.Errorf("%v should be dispatchable", c)
		}
	}

	blocked := []Category{CategoryNotApplicable, CategoryError}
	for _, c := range blocked {
		if c.Dispatchable() {
			t.Errorf("%v must never be dispatchable", c)
		}
	}
}

func TestCategory_Bin(t *testing.T) {
	if got := CategoryRecycle.Bin(); got != "recycle" {
		t.Errorf("Bin: got %q, want %q", got, "recycle")
	}
	if got := CategoryLandfill.Bin(); got != "landfill" {
		t.Errorf("Bin: got %q, want %q", got, "landfill")
	}
}

// geminiReply builds a generateContent response wrapping the given decision text.
func geminiReply(t *testing.T, decision string) []byte {
	t.Helper()
	reply := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{
						{"text": decision},
					},
				},
			},
		},
	}
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return data
}

func TestGemini_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		w.Write(geminiReply(t, `{"object":"banana peel","bin":"Compost","reason":"food waste composts"}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key").WithBaseURL(srv.URL)
	res, err := g.Classify(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if res.Object != "banana peel" {
		t.Errorf("Object: got %q", res.Object)
	}
	if res.Category != CategoryCompost {
		t.Errorf("Category: got %v, want Compost", res.Category)
	}
	if res.Reason == "" {
		t.Error("Reason should not be empty")
	}
}

func TestGemini_Classify_NormalizesNA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiReply(t, `{"object":"person","bin":"N/A","reason":"not a waste object"}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key").WithBaseURL(srv.URL)
	res, err := g.Classify(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategoryNotApplicable {
		t.Errorf("Category: got %v, want NotApplicable", res.Category)
	}
}

func TestGemini_Classify_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded","code":429}}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key").WithBaseURL(srv.URL)
	_, err := g.Classify(context.Background(), []byte("jpeg-bytes"))
	if err == nil {
		t.Fatal("expected error for 429 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsRateLimited() {
		t.Errorf("expected rate-limited error, got status %d", apiErr.StatusCode)
	}
	if apiErr.Message != "quota exceeded" {
		t.Errorf("Message: got %q", apiErr.Message)
	}
}

func TestGemini_Classify_BadDecisionJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiReply(t, "sorry, I can only respond in prose"))
	}))
	defer srv.Close()

	g := NewGemini("test-key").WithBaseURL(srv.URL)
	_, err := g.Classify(context.Background(), []byte("jpeg-bytes"))
	if err == nil {
		t.Fatal("expected error for non-JSON decision")
	}
}

func TestGemini_Classify_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key").WithBaseURL(srv.URL)
	_, err := g.Classify(context.Background(), []byte("jpeg-bytes"))
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestGemini_Classify_NoAPIKey(t *testing.T) {
	g := NewGemini("")
	_, err := g.Classify(context.Background(), []byte("jpeg-bytes"))
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGemini_Classify_EmptyImage(t *testing.T) {
	g := NewGemini("test-key")
	_, err := g.Classify(context.Background(), nil)
	if !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestMock_RecordsCalls(t *testing.T) {
	m := NewMock()

	res, err := m.Classify(context.Background(), []byte("abc"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategoryRecycle {
		t.Errorf("default mock category: got %v", res.Category)
	}
	if m.CallCount() != 1 {
		t.Errorf("CallCount: got %d, want 1", m.CallCount())
	}
	if m.Calls()[0].ImageLen != 3 {
		t.Errorf("ImageLen: got %d, want 3", m.Calls()[0].ImageLen)
	}

	m.Reset()
	if m.CallCount() != 0 {
		t.Errorf("CallCount after Reset: got %d", m.CallCount())
	}
}
