package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rurikon/gallery-api/internal/config"
	"github.com/rurikon/gallery-api/internal/domain/auth"
	"github.com/rurikon/gallery-api/internal/domain/compress"
	"github.com/rurikon/gallery-api/internal/domain/events"
	"github.com/rurikon/gallery-api/internal/domain/gallery"
	"github.com/rurikon/gallery-api/internal/domain/upload"
	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/docstore"
	"github.com/rurikon/gallery-api/internal/pkg/imaging"
	"github.com/rurikon/gallery-api/internal/pkg/jwt"
	"github.com/rurikon/gallery-api/internal/pkg/storage"
)

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:3000"}}
	jwtService := jwt.NewService("test-secret", time.Hour)
	token, _, err := jwtService.GenerateAccessToken("admin@example.com", jwt.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	local, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(local.BasePath(), "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	hub := events.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	galleryService := gallery.NewService(gallery.NewRepository(docstore.NewMemoryStore()), nil, hub)
	uploadService := upload.NewService(storage.NewObjectTransport(local), galleryService, 1<<20)

	h := handlers{
		auth:     auth.NewHandler(auth.NewService("", "", jwtService)),
		gallery:  gallery.NewHandler(galleryService),
		upload:   upload.NewHandler(uploadService, 1<<20),
		compress: compress.NewHandler(imaging.NewProcessor(0, 0), 1<<20),
		events:   events.NewHandler(hub, jwtService, cfg.AllowedOrigins),
		media:    http.FileServer(http.Dir(local.BasePath())),
	}

	return newRouter(cfg, h, middleware.Auth(jwtService)), token
}

func TestRouterMountsEndpoints(t *testing.T) {
	router, token := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		authed bool
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "ping", method: http.MethodGet, path: "/api/v1/ping", want: http.StatusOK},
		{name: "public category read", method: http.MethodGet, path: "/api/v1/categories/tokyo", want: http.StatusNotFound},
		{name: "category list requires auth", method: http.MethodGet, path: "/api/v1/categories", want: http.StatusUnauthorized},
		{name: "category list", method: http.MethodGet, path: "/api/v1/categories", authed: true, want: http.StatusOK},
		{name: "images require auth", method: http.MethodGet, path: "/api/v1/images", want: http.StatusUnauthorized},
		{name: "images", method: http.MethodGet, path: "/api/v1/images", authed: true, want: http.StatusOK},
		{name: "upload requires auth", method: http.MethodPost, path: "/api/v1/images/upload", want: http.StatusUnauthorized},
		{name: "public homepage", method: http.MethodGet, path: "/api/v1/homepage", want: http.StatusOK},
		{name: "trash requires auth", method: http.MethodGet, path: "/api/v1/photos/deleted", want: http.StatusUnauthorized},
		{name: "trash", method: http.MethodGet, path: "/api/v1/photos/deleted", authed: true, want: http.StatusOK},
		{name: "consistency", method: http.MethodGet, path: "/api/v1/admin/consistency", authed: true, want: http.StatusOK},
		{name: "login without configured admin", method: http.MethodPost, path: "/api/v1/auth/login", body: `{"email":"a@b.co","password":"x"}`, want: http.StatusUnauthorized},
		{name: "me", method: http.MethodGet, path: "/api/v1/auth/me", authed: true, want: http.StatusOK},
		{name: "websocket requires token", method: http.MethodGet, path: "/ws", want: http.StatusUnauthorized},
		{name: "local media", method: http.MethodGet, path: "/media/hello.txt", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			if tt.authed {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("%s %s: expected status %d, got %d: %s", tt.method, tt.path, tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}
