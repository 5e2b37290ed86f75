package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stageflow/internal/session"
	"stageflow/internal/stage"
	"stageflow/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts  *httptest.Server
	mgr *session.Manager
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := stage.NewRegistry([]stage.Game{
		{Name: "Puzzle", Stages: []string{"P1", "P2", "P3"}},
		{Name: "Arcade", Stages: []string{"A1", "A2"}},
	})
	resolver := stage.NewResolver(registry, "")
	mgr := session.NewManager(resolver, store)

	srv := New(registry, resolver, mgr)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, mgr: mgr}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- REST API helpers ---

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createSessionViaAPI(t *testing.T, ts *httptest.Server, startStage string) sessionView {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/sessions", createSessionRequest{Stage: startStage})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[sessionView](t, resp)
}

func getSessionViaAPI(t *testing.T, ts *httptest.Server, id string) sessionDetail {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s", ts.URL, id))
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session: expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[sessionDetail](t, resp)
}

func completeViaAPI(t *testing.T, ts *httptest.Server, id string) completeResponse {
	t.Helper()
	resp := postJSON(t, fmt.Sprintf("%s/api/sessions/%s/complete", ts.URL, id), struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[completeResponse](t, resp)
}
