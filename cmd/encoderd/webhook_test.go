package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestWebhookNotifier_PostsEnvelope tests that events arrive as JSON
// envelopes with the shared type discriminator.
func TestWebhookNotifier_PostsEnvelope(t *testing.T) {
	type received struct {
		contentType string
		body        []byte
	}
	got := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{contentType: r.Header.Get("Content-Type"), body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := newWebhookNotifier([]string{srv.URL}, time.Second)
	if err := n.Post(ModeChanged{Mode: "brightness", Index: 1}); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	select {
	case r := <-got:
		if r.contentType != "application/json" {
			t.Errorf("expected application/json, got %s", r.contentType)
		}
		var env EventEnvelope
		if err := json.Unmarshal(r.body, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
		if env.Type != "mode_changed" {
			t.Errorf("expected type mode_changed, got %s", env.Type)
		}
		var mc ModeChanged
		if err := json.Unmarshal(env.Data, &mc); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if mc.Mode != "brightness" || mc.Index != 1 {
			t.Errorf("expected brightness/1, got %s/%d", mc.Mode, mc.Index)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}
}

// TestWebhookNotifier_Non2xxIsError tests that HTTP error statuses surface
// as delivery failures.
func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newWebhookNotifier([]string{srv.URL}, time.Second)
	err := n.Post(ButtonPressed{Kind: "short"})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status in error, got %v", err)
	}
}

// TestWebhookNotifier_AllURLsAttempted tests that one failing endpoint does
// not stop delivery to the others, and the error reports the failure count.
func TestWebhookNotifier_AllURLsAttempted(t *testing.T) {
	var okHits, badHits atomic.Int32

	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer badSrv.Close()

	n := newWebhookNotifier([]string{badSrv.URL, okSrv.URL}, time.Second)
	err := n.Post(RotationDispatched{Result: "volume_clockwise", Direction: "clockwise", Repeat: 1})
	if err == nil {
		t.Fatal("expected an error when one endpoint fails")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure count in error, got %v", err)
	}
	if okHits.Load() != 1 || badHits.Load() != 1 {
		t.Errorf("expected both endpoints attempted, got ok=%d bad=%d", okHits.Load(), badHits.Load())
	}
}

// TestWebhookNotifier_Timeout tests that a stalled endpoint is cut off by
// the request timeout.
func TestWebhookNotifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	n := newWebhookNotifier([]string{srv.URL}, 50*time.Millisecond)
	start := time.Now()
	err := n.Post(ButtonPressed{Kind: "long"})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected request cut off by timeout, took %v", elapsed)
	}
}
