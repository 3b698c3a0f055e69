package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		task string
		hint Complexity
		want Complexity
	}{
		{"check inbox", ComplexityAuto, ComplexitySimple},
		{"Analyze market trends for the week", ComplexityAuto, ComplexityComplex},
		{"draft a cover letter", ComplexityAuto, ComplexityComplex},
		{strings.Repeat("x", 500), ComplexityAuto, ComplexityComplex},
		{"analyze everything", ComplexitySimple, ComplexitySimple},
		{"ping", ComplexityComplex, ComplexityComplex},
	}
	for _, tt := range tests {
		if got := Classify(tt.task, tt.hint); got != tt.want {
			t.Errorf("Classify(%.30q, %s) = %s, want %s", tt.task, tt.hint, got, tt.want)
		}
	}
}

type fakeExecutor struct {
	name  string
	calls int
	err   error
}

func (f *fakeExecutor) Name() string { return f.name }

func (f *fakeExecutor) Execute(ctx context.Context, task string, c Complexity) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.name + ": " + task, nil
}

func TestRouterPicksBackendByComplexity(t *testing.T) {
	local := &fakeExecutor{name: "local"}
	hosted := &fakeExecutor{name: "hosted"}
	r, err := NewRouter(local, hosted)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	out, err := r.Execute(context.Background(), "check inbox", ComplexityAuto)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "local:") {
		t.Fatalf("simple task should run locally, got %q", out)
	}

	out, err = r.Execute(context.Background(), "analyze positions", ComplexityAuto)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "hosted:") {
		t.Fatalf("complex task should run hosted, got %q", out)
	}
}

func TestRouterFallsBackWhenLocalFails(t *testing.T) {
	local := &fakeExecutor{name: "local", err: errors.New("connection refused")}
	hosted := &fakeExecutor{name: "hosted"}
	r, _ := NewRouter(local, hosted)

	out, err := r.Execute(context.Background(), "check inbox", ComplexityAuto)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "hosted:") {
		t.Fatalf("expected hosted fallback, got %q", out)
	}
	if local.calls != 1 || hosted.calls != 1 {
		t.Fatalf("expected one call each, got local=%d hosted=%d", local.calls, hosted.calls)
	}
}

func TestRouterSingleBackend(t *testing.T) {
	hosted := &fakeExecutor{name: "hosted"}
	r, err := NewRouter(nil, hosted)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.Execute(context.Background(), "check inbox", ComplexitySimple); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if hosted.calls != 1 {
		t.Fatalf("expected hosted to serve simple tasks when local is absent")
	}

	if _, err := NewRouter(nil, nil); err == nil {
		t.Fatal("expected error for router with no backends")
	}
}

func TestStaticExecutor(t *testing.T) {
	s := &Static{}
	out, err := s.Execute(context.Background(), "do the thing", ComplexityAuto)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "do the thing") {
		t.Fatalf("unexpected static response %q", out)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Execute(ctx, "late", ComplexityAuto); err == nil {
		t.Fatal("expected context error")
	}
}

func TestOllamaExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Stream {
			t.Fatal("streaming must be disabled")
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "three new listings"})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "")
	out, err := o.Execute(context.Background(), "scan job boards", ComplexitySimple)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "three new listings" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestOpenAIExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", "")
	o.baseURL = srv.URL
	out, err := o.Execute(context.Background(), "summarize the week", ComplexityComplex)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestOpenAIExecuteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI("bad", "")
	o.baseURL = srv.URL
	_, err := o.Execute(context.Background(), "anything", ComplexityComplex)
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expected api error, got %v", err)
	}
}
