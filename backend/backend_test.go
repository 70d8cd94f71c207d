package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCompleteSendsPayload(t *testing.T) {
	var got Payload
	var contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"text":"hi"}]}`))
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL+"/v1/completions", time.Second)
	resp, err := c.Complete(context.Background(), Payload{Model: "openai/gpt-oss-20b", Prompt: "Hello", MaxTokens: 10})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if method != http.MethodPost {
		t.Fatalf("method = %s", method)
	}
	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}
	want := Payload{Model: "openai/gpt-oss-20b", Prompt: "Hello", MaxTokens: 10}
	if got != want {
		t.Fatalf("payload = %+v, want %+v", got, want)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"choices":[{"text":"hi"}]}` {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
	if !resp.Healthy() {
		t.Fatal("200 should be healthy")
	}
}

func TestCompleteKeepsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	resp, err := NewBackendClient(srv.URL, time.Second).Complete(context.Background(), Payload{})
	if err != nil {
		t.Fatalf("a backend error status is not a transport error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"error":"boom"}` {
		t.Fatalf("body = %s", resp.Body)
	}
	if resp.Healthy() {
		t.Fatal("500 should not be healthy")
	}
}

func TestCompleteConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewBackendClient(url, time.Second).Complete(context.Background(), Payload{}); err == nil {
		t.Fatal("expected error for closed backend")
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewBackendClient(srv.URL, 50*time.Millisecond).Complete(context.Background(), Payload{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout not enforced, took %v", time.Since(start))
	}
}

func TestCompleteContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBackendClient(srv.URL, time.Minute).Complete(ctx, Payload{}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
