// Package upload stores images posted as multipart form data on local disk.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"postboard/cmd/internal/httpjson"
)

// FieldName is the multipart field carrying the file.
const FieldName = "image"

// maxExtLen bounds the kept extension, dot excluded.
const maxExtLen = 10

// multipartOverhead is allowed on top of MaxBytes for part headers and boundaries.
const multipartOverhead = 64 << 10

// Config controls where uploads go and how large they may be.
type Config struct {
	Dir      string `env:"POSTBOARD_UPLOAD_DIR" envDefault:"./public/images"`
	MaxBytes int64  `env:"POSTBOARD_UPLOAD_MAX_BYTES" envDefault:"10485760"`
}

// Handler accepts POST multipart uploads with a single "image" file.
type Handler struct {
	log *slog.Logger
	cfg Config
	now func() time.Time
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithClock overrides the clock used to name uploaded files.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler creates the upload directory if needed and returns a Handler.
func NewHandler(log *slog.Logger, cfg Config, opts ...Option) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	if cfg.Dir == "" {
		return nil, errors.New("upload: directory is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}

	h := &Handler{log: log, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

type uploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

var errTooLarge = errors.New("upload: file too large")

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		writeNoFile(w)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeNoFile(w)
			return
		}
		if err != nil {
			h.writeReadError(w, err)
			return
		}
		if part.FormName() != FieldName || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		path, err := h.store(part)
		_ = part.Close()
		if err != nil {
			h.writeReadError(w, err)
			return
		}

		h.log.Info("upload.ok", "path", path)
		httpjson.WriteJSON(w, http.StatusOK, uploadResponse{
			Message:  "Image uploaded successfully",
			FilePath: path,
		})
		return
	}
}

// store writes part under a fresh name. Partial files are removed on failure.
func (h *Handler) store(part *multipart.Part) (string, error) {
	name := FileName(h.now(), part.FileName())
	path := filepath.Join(h.cfg.Dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(f, io.LimitReader(part, h.cfg.MaxBytes+1))
	if err == nil && n > h.cfg.MaxBytes {
		err = errTooLarge
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (h *Handler) writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errTooLarge) || httpjson.IsTooLarge(err) {
		h.log.Info("upload.too_large", "max_bytes", h.cfg.MaxBytes)
		httpjson.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "File too large.")
		return
	}
	h.log.Error("upload.fail", "err", err)
	httpjson.WriteError(w, http.StatusInternalServerError, "server_error", "Error uploading image")
}

func writeNoFile(w http.ResponseWriter) {
	httpjson.WriteError(w, http.StatusBadRequest, "no_file", "No file was uploaded.")
}

// FileName returns a collision-resistant name for an upload received at t: a ULID
// followed by the lower-cased extension of original, if it has a usable one.
func FileName(t time.Time, original string) string {
	id := ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy())
	return strings.ToLower(id.String()) + extension(original)
}

// extension returns ".ext" for short alphanumeric extensions and "" otherwise.
func extension(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}
