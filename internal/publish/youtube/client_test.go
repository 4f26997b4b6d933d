package youtube_test

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"versemill/internal/config"
	"versemill/internal/publish"
	"versemill/internal/publish/youtube"
	"versemill/internal/queue"
)

func testJob(t *testing.T) *queue.Job {
	t.Helper()
	videoPath := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(videoPath, []byte("not really mp4"), 0o644); err != nil {
		t.Fatalf("write video fixture: %v", err)
	}
	return &queue.Job{
		ID:         7,
		WorkUnitID: "John_3_16",
		Book:       "John",
		Chapter:    3,
		Verse:      16,
		Text:       "For God so loved the world, that he gave his only begotten Son.",
		Status:     queue.StatusReady,
		FinalPath:  videoPath,
	}
}

func testServer(t *testing.T, uploadStatus int, uploadBody string) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("unexpected grant_type %q", got)
		}
		if got := r.Form.Get("refresh_token"); got != "refresh-abc" {
			t.Errorf("unexpected refresh_token %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-xyz","expires_in":3600}`))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-xyz" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/related") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(uploadStatus)
		_, _ = w.Write([]byte(uploadBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenCalls
}

func testPublishConfig(server *httptest.Server) config.Publish {
	return config.Publish{
		Enabled:             true,
		ClientID:            "client-id",
		ClientSecret:        "client-secret",
		RefreshToken:        "refresh-abc",
		TokenURL:            server.URL + "/token",
		UploadURL:           server.URL + "/upload",
		Privacy:             "public",
		CategoryID:          "22",
		TitleTemplate:       "{reference} | {first_words}",
		DescriptionTemplate: "{text}\n\n{reference}",
	}
}

func TestPublishUploadsVideo(t *testing.T) {
	server, tokenCalls := testServer(t, http.StatusOK, `{"id":"abc123"}`)
	client := youtube.NewClientWithDoer(testPublishConfig(server), server.Client())

	result, err := client.Publish(context.Background(), testJob(t))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if result.ID != "abc123" {
		t.Fatalf("unexpected video id %q", result.ID)
	}
	if result.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected video url %q", result.URL)
	}
	if *tokenCalls != 1 {
		t.Fatalf("expected one token refresh, got %d", *tokenCalls)
	}

	// The cached token serves the second upload.
	if _, err := client.Publish(context.Background(), testJob(t)); err != nil {
		t.Fatalf("second Publish failed: %v", err)
	}
	if *tokenCalls != 1 {
		t.Fatalf("expected cached token reuse, got %d refreshes", *tokenCalls)
	}
}

func TestPublishQuotaErrorIsRetryable(t *testing.T) {
	server, _ := testServer(t, http.StatusForbidden, `{"error":{"errors":[{"reason":"quotaExceeded"}]}}`)
	client := youtube.NewClientWithDoer(testPublishConfig(server), server.Client())

	_, err := client.Publish(context.Background(), testJob(t))
	var pubErr *publish.Error
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected publish.Error, got %v", err)
	}
	if !pubErr.Retryable {
		t.Fatal("quota rejection must be retryable")
	}
}

func TestPublishBadRequestIsNotRetryable(t *testing.T) {
	server, _ := testServer(t, http.StatusBadRequest, `{"error":"invalidMetadata"}`)
	client := youtube.NewClientWithDoer(testPublishConfig(server), server.Client())

	_, err := client.Publish(context.Background(), testJob(t))
	var pubErr *publish.Error
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected publish.Error, got %v", err)
	}
	if pubErr.Retryable {
		t.Fatal("rejected metadata must not be retryable")
	}
}

func TestPublishRequiresFinalVideo(t *testing.T) {
	server, _ := testServer(t, http.StatusOK, `{"id":"abc123"}`)
	client := youtube.NewClientWithDoer(testPublishConfig(server), server.Client())

	job := testJob(t)
	job.FinalPath = ""
	if _, err := client.Publish(context.Background(), job); err == nil {
		t.Fatal("expected missing final video to be rejected")
	}
}

func TestMetadataTemplates(t *testing.T) {
	var captured map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"token-xyz","expires_in":3600}`))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("parse content type: %v", err)
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("read metadata part: %v", err)
			return
		}
		if err := json.NewDecoder(part).Decode(&captured); err != nil {
			t.Errorf("decode metadata: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"abc123"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := youtube.NewClientWithDoer(testPublishConfig(server), server.Client())
	if _, err := client.Publish(context.Background(), testJob(t)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	snippet, ok := captured["snippet"].(map[string]any)
	if !ok {
		t.Fatalf("metadata missing snippet: %#v", captured)
	}
	title, _ := snippet["title"].(string)
	if title != "John 3:16 | For God so loved the..." {
		t.Fatalf("unexpected title %q", title)
	}
	description, _ := snippet["description"].(string)
	if !strings.Contains(description, "For God so loved the world") {
		t.Fatalf("unexpected description %q", description)
	}
}
