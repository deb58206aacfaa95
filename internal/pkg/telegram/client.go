// Package telegram uploads photos through the Telegram Bot API, using a
// private chat as free image hosting.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rurikon/gallery-api/internal/pkg/storage"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 30 * time.Second
)

var (
	ErrNotConfigured = errors.New("telegram: bot token and chat id are required")
	ErrAPI           = errors.New("telegram api error")
	ErrTimeout       = errors.New("telegram timeout")
	ErrNetwork       = errors.New("telegram network error")
)

// Client talks to the Bot API for a single bot and target chat.
type Client struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
}

func NewClient(baseURL, token, chatID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

type photoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type message struct {
	Photo []photoSize `json:"photo"`
}

type file struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// Upload sends the image to the chat with sendPhoto, then resolves the
// largest rendition to a download URL with getFile.
func (c *Client) Upload(ctx context.Context, name string, data []byte, contentType string) (*storage.Blob, error) {
	if c == nil || c.token == "" || c.chatID == "" {
		return nil, ErrNotConfigured
	}

	fileID, err := c.sendPhoto(ctx, name, data, contentType)
	if err != nil {
		return nil, err
	}

	path, err := c.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return &storage.Blob{
		URL:         c.FileURL(path),
		FileID:      fileID,
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// FileURL builds the public download URL for a bot file path.
func (c *Client) FileURL(path string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, path)
}

func (c *Client) sendPhoto(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("chat_id", c.chatID); err != nil {
		return "", fmt.Errorf("telegram sendPhoto request error: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, escapeQuotes(name)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("telegram sendPhoto request error: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("telegram sendPhoto request error: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("telegram sendPhoto request error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendPhoto"), &body)
	if err != nil {
		return "", fmt.Errorf("telegram sendPhoto request error: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var msg message
	if err := c.do(ctx, req, "sendPhoto", &msg); err != nil {
		return "", err
	}
	if len(msg.Photo) == 0 {
		return "", fmt.Errorf("%w: sendPhoto returned no photo sizes", ErrAPI)
	}

	// Sizes are ascending; the last one is the full resolution.
	return msg.Photo[len(msg.Photo)-1].FileID, nil
}

func (c *Client) getFile(ctx context.Context, fileID string) (string, error) {
	endpoint := c.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("telegram getFile request error: %w", err)
	}

	var f file
	if err := c.do(ctx, req, "getFile", &f); err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("%w: getFile returned empty file_path", ErrAPI)
	}
	return f.FilePath, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(ctx context.Context, req *http.Request, method string, result interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyRequestError(ctx, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram %s read error: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: %s status=%d body=%s", ErrAPI, method, resp.StatusCode, truncate(string(raw), 512))
	}
	if !envelope.OK {
		return fmt.Errorf("%w: %s status=%d code=%d %s", ErrAPI, method, resp.StatusCode, envelope.ErrorCode, envelope.Description)
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("%w: %s decode result: %v", ErrAPI, method, err)
	}
	return nil
}

func classifyRequestError(ctx context.Context, method string, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, method, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%w: %s: %v", ErrNetwork, method, err)
	}
	return fmt.Errorf("telegram %s request error: %w", method, err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "...<truncated>"
	}
	return s
}
