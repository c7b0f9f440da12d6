package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NordCoder/Quill/internal/domain/user"
	"github.com/NordCoder/Quill/internal/services/api/httpx"

	"go.uber.org/zap"
)

// Server exposes read-only user listings.
type Server struct {
	log   *zap.Logger
	users user.Repo
}

func NewServer(log *zap.Logger, users user.Repo) *Server {
	return &Server{log: log, users: users}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users", s.list)
	mux.HandleFunc("GET /users/{id}", s.get)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := httpx.Page(r)
	if err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.users.List(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteInternal(w, s.log, r, err)
		return
	}
	if out == nil {
		out = []*user.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, "user id must be an integer")
		return
	}
	u, err := s.users.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, user.ErrNotFound):
		httpx.WriteDetail(w, http.StatusNotFound, "User not found")
	case err != nil:
		httpx.WriteInternal(w, s.log, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, u)
	}
}
