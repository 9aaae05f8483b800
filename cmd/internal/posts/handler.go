package posts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"postboard/cmd/internal/auth/session"
	"postboard/cmd/internal/httpjson"
)

// Config controls the posts HTTP surface.
type Config struct {
	MaxBodyBytes int64 `env:"POSTBOARD_POSTS_MAX_BODY_BYTES" envDefault:"1048576"`
	StrictStatus bool  `env:"POSTBOARD_STRICT_STATUS" envDefault:"false"`
}

// PostService is the subset of *Service the handler needs.
type PostService interface {
	Create(ctx context.Context, owner session.Identity, in CreateInput) (Post, error)
	Get(ctx context.Context, id int64) (Post, error)
}

// Handler serves the posts routes. It must be mounted behind the auth middleware.
type Handler struct {
	log *slog.Logger
	cfg Config
	svc PostService
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, svc PostService) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("posts: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{log: log, cfg: cfg, svc: svc}, nil
}

// Routes mounts the posts endpoints on r, relative to the router's prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
}

// createRequest has no owner field; one sent by the client is ignored.
type createRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createResponse struct {
	Message string `json:"message"`
	PostID  int64  `json:"postId"`
}

type postResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	LikesCount int       `json:"likesCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const failed = "Post creation failed"

	owner, ok := session.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteMessage(w, http.StatusUnauthorized, "", "No token provided")
		return
	}

	var req createRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		if httpjson.IsTooLarge(err) {
			httpjson.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		httpjson.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	p, err := h.svc.Create(r.Context(), owner, CreateInput{Title: req.Title, Content: req.Content})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			h.log.Info("posts.create.invalid", "user_id", owner.UserID, "err", err)
			if h.cfg.StrictStatus {
				httpjson.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			httpjson.WriteError(w, http.StatusInternalServerError, "invalid_request", failed)
			return
		}
		h.log.Error("posts.create.fail", "user_id", owner.UserID, "err", err)
		httpjson.WriteError(w, http.StatusInternalServerError, "server_error", failed)
		return
	}

	httpjson.WriteJSON(w, http.StatusCreated, createResponse{
		Message: "Post created successfully",
		PostID:  p.ID,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid post id")
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpjson.WriteError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		h.log.Error("posts.get.fail", "post_id", id, "err", err)
		httpjson.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, postResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		Title:      p.Title,
		Content:    p.Content,
		LikesCount: p.LikesCount,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	})
}
