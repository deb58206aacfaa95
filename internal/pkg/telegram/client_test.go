package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUploadPicksLargestPhotoAndBuildsFileURL(t *testing.T) {
	var gotChatID, gotFileName string
	var gotBytes []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottest-token/sendPhoto":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			gotChatID = r.FormValue("chat_id")
			f, header, err := r.FormFile("photo")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			gotFileName = header.Filename
			gotBytes, _ = io.ReadAll(f)
			_, _ = w.Write([]byte(`{"ok":true,"result":{"photo":[
				{"file_id":"small","width":90,"height":90},
				{"file_id":"large","width":1280,"height":1280}
			]}}`))
		case "/bottest-token/getFile":
			if r.URL.Query().Get("file_id") != "large" {
				_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"wrong file"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"large","file_path":"photos/file_7.jpg"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-token", "chat-1", time.Second)
	blob, err := client.Upload(context.Background(), "sunset.jpg", []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotChatID != "chat-1" || gotFileName != "sunset.jpg" || string(gotBytes) != "jpeg-bytes" {
		t.Fatalf("unexpected sendPhoto form chat=%q name=%q body=%q", gotChatID, gotFileName, gotBytes)
	}
	if blob.FileID != "large" || blob.Path != "photos/file_7.jpg" {
		t.Fatalf("unexpected blob %+v", blob)
	}
	if blob.URL != server.URL+"/file/bottest-token/photos/file_7.jpg" {
		t.Fatalf("unexpected url %q", blob.URL)
	}
}

func TestUploadAPIErrorIncludesDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "token", "chat", time.Second)
	_, err := client.Upload(context.Background(), "a.png", []byte("png"), "image/png")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
	if want := "chat not found"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected %q in error, got %v", want, err)
	}
}

func TestUploadTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "token", "chat", 20*time.Millisecond)
	_, err := client.Upload(context.Background(), "a.png", []byte("png"), "image/png")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
}

func TestUploadNotConfigured(t *testing.T) {
	client := NewClient("", "", "", 0)
	if _, err := client.Upload(context.Background(), "a.png", []byte("png"), "image/png"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
