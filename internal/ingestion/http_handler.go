package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpattn/masterdata/internal/auth"
	"github.com/rpattn/masterdata/internal/domain"
)

// Handler exposes ingestion as an HTTP endpoint.
type Handler struct {
	service     *Service
	uploadDir   string
	maxUploadMB int64
}

// NewHTTPHandler wraps the service with a POST endpoint. Uploads are spooled
// to uploadDir, or the system temp directory when empty.
func NewHTTPHandler(service *Service, uploadDir string, maxUploadMB int64) http.Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &Handler{service: service, uploadDir: uploadDir, maxUploadMB: maxUploadMB}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, (h.maxUploadMB+1)<<20)
	if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		actor = strings.TrimSpace(r.FormValue("actor"))
	}
	if actor == "" {
		http.Error(w, "actor is required", http.StatusUnauthorized)
		return
	}

	tableName := strings.TrimSpace(r.FormValue("table_name"))
	if tableName == "" {
		http.Error(w, "table_name is required", http.StatusBadRequest)
		return
	}

	bound, err := parseBound(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path, err := h.spool(file, header.Filename)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to store upload: %v", err), http.StatusInternalServerError)
		return
	}

	summary, err := h.service.Ingest(r.Context(), Request{
		Actor:  actor,
		Table:  tableName,
		Upload: Upload{Path: path, FileName: header.Filename},
		Bound:  bound,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) spool(src io.Reader, fileName string) (string, error) {
	dir := h.uploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.CreateTemp(dir, "upload-*"+strings.ToLower(filepath.Ext(fileName)))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func parseBound(r *http.Request) (Bound, error) {
	var (
		bound Bound
		err   error
	)
	fields := []struct {
		name  string
		value *int
	}{
		{"year", &bound.Year},
		{"month", &bound.Month},
		{"rows", &bound.Rows},
		{"start_line", &bound.StartLine},
		{"end_line", &bound.EndLine},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(r.FormValue(field.name))
		if raw == "" {
			continue
		}
		if *field.value, err = strconv.Atoi(raw); err != nil {
			return Bound{}, fmt.Errorf("%s must be an integer", field.name)
		}
	}
	bound.Range = strings.TrimSpace(r.FormValue("range"))
	return bound, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrWriteFailure):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrEmptyBatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMappingNotFound),
		errors.Is(err, domain.ErrInvalidMapping),
		errors.Is(err, domain.ErrUnknownTable),
		errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnreadableUpload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
