package posts

import (
	"errors"
	"net/http"

	"github.com/NordCoder/Quill/internal/domain/post"
	"github.com/NordCoder/Quill/internal/services/api/httpx"
	"github.com/NordCoder/Quill/internal/services/api/session"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"
)

type Server struct {
	log  *zap.Logger
	uc   *Usecase
	auth func(http.Handler) http.Handler
}

// NewServer takes the bearer middleware guarding write routes.
func NewServer(log *zap.Logger, uc *Usecase, auth func(http.Handler) http.Handler) *Server {
	return &Server{log: log, uc: uc, auth: auth}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /posts", s.list)
	mux.Handle("POST /posts", s.auth(http.HandlerFunc(s.create)))
	mux.HandleFunc("GET /posts/{id}", s.get)
	mux.Handle("DELETE /posts/{id}", s.auth(http.HandlerFunc(s.delete)))
}

type createRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r createRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Required),
	)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := httpx.Page(r)
	if err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.uc.List(r.Context(), limit, offset)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if out == nil {
		out = []*post.Post{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	uid, ok := session.UserIDFromCtx(r.Context())
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.uc.Create(r.Context(), uid, req.Title, req.Content)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	p, err := s.uc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := session.UserIDFromCtx(r.Context())
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := s.uc.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, post.ErrNotFound):
		httpx.WriteDetail(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, ErrForbidden):
		httpx.WriteDetail(w, http.StatusForbidden, "Not the author of this post")
	case errors.Is(err, post.ErrAuthorNotFound):
		// the token outlived its user
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.WriteDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	default:
		httpx.WriteInternal(w, s.log, r, err)
	}
}
