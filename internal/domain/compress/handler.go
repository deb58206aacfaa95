package compress

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rurikon/gallery-api/internal/pkg/imaging"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
	"github.com/rurikon/gallery-api/internal/pkg/response"
)

var errTooLarge = errors.New("image too large")

// Handler re-encodes images before they are uploaded to the gallery.
type Handler struct {
	processor *imaging.Processor
	maxBytes  int64
}

// NewHandler creates compress handler
func NewHandler(processor *imaging.Processor, maxBytes int64) *Handler {
	return &Handler{processor: processor, maxBytes: maxBytes}
}

// Compress handles POST /compress
// Multipart form: image, quality (1-100, default 80)
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.PayloadTooLarge(w, "Image too large")
			return
		}
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	quality, err := parseQuality(r.FormValue("quality"))
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "No image provided")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		response.PayloadTooLarge(w, "Image too large")
		return
	}

	data, err := readLimited(file, h.maxBytes)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			response.PayloadTooLarge(w, "Image too large")
			return
		}
		response.BadRequest(w, "Failed to read image")
		return
	}

	result, err := h.processor.Compress(data, quality)
	if err != nil {
		logger.LogWarn(r.Context(), "image compression failed", "file_name", header.Filename, "error", err.Error())
		response.BadRequest(w, "Image could not be processed")
		return
	}

	logger.LogDebug(r.Context(), "image compressed",
		"original_size", result.OriginalSize,
		"compressed_size", len(result.Data),
		"quality", quality,
	)

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="compressed.jpg"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("X-Original-Size", strconv.Itoa(result.OriginalSize))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

func parseQuality(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return imaging.DefaultQuality, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil || q < 1 || q > 100 {
		return 0, imaging.ErrInvalidQuality
	}
	return q, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, errTooLarge
	}
	return data, nil
}
