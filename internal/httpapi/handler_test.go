package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"mlpipe/internal/pipeline"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls []string
	err   error

	// When set, Run signals started and blocks until release closes.
	started chan struct{}
	release chan struct{}
}

func (f *fakeTrigger) Run(_ context.Context, selection string) error {
	f.mu.Lock()
	f.calls = append(f.calls, selection)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.err
}

func newTestHandler(ft *fakeTrigger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	NewHandler(ft).Register(g)
	return g
}

func postRun(g *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestStartRun_OK(t *testing.T) {
	ft := &fakeTrigger{}
	g := newTestHandler(ft)

	w := postRun(g, `{"steps":"download,data_check"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "run_id") {
		t.Errorf("expected response to carry a run_id, got %s", w.Body.String())
	}
	if len(ft.calls) != 1 || ft.calls[0] != "download,data_check" {
		t.Errorf("expected driver call with selection, got %v", ft.calls)
	}
}

func TestStartRun_EmptyBodyDelegatesToConfig(t *testing.T) {
	ft := &fakeTrigger{}
	g := newTestHandler(ft)

	w := postRun(g, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if len(ft.calls) != 1 || ft.calls[0] != "" {
		t.Errorf("expected driver call with empty selection, got %v", ft.calls)
	}
}

func TestStartRun_InvalidBody(t *testing.T) {
	ft := &fakeTrigger{}
	g := newTestHandler(ft)

	w := postRun(g, `{"steps":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if len(ft.calls) != 0 {
		t.Errorf("expected no driver calls, got %v", ft.calls)
	}
}

func TestStartRun_FailedRun(t *testing.T) {
	ft := &fakeTrigger{err: &pipeline.StepError{Step: "data_check", Err: errors.New("unit exploded")}}
	g := newTestHandler(ft)

	w := postRun(g, `{"steps":"all"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "data_check") {
		t.Errorf("expected response to name the failing step, got %s", body)
	}
	if !strings.Contains(body, "unit exploded") {
		t.Errorf("expected response to carry the error message, got %s", body)
	}
}

func TestStartRun_ConcurrentRunConflicts(t *testing.T) {
	ft := &fakeTrigger{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	g := newTestHandler(ft)

	first := make(chan int, 1)
	go func() {
		w := postRun(g, `{"steps":"download"}`)
		first <- w.Code
	}()

	// Wait until the first run is inside the driver.
	<-ft.started

	w := postRun(g, `{"steps":"download"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d for overlapping run, got %d", http.StatusConflict, w.Code)
	}

	close(ft.release)
	if code := <-first; code != http.StatusOK {
		t.Errorf("expected first run to finish with %d, got %d", http.StatusOK, code)
	}
}

func TestHealth(t *testing.T) {
	g := newTestHandler(&fakeTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "download") {
		t.Errorf("expected health response to list steps, got %s", w.Body.String())
	}
}
