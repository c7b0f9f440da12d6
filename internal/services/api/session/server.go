package session

import (
	"errors"
	"net/http"
	"strings"

	authcore "github.com/NordCoder/Quill/internal/auth"
	"github.com/NordCoder/Quill/internal/services/api/httpx"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"
)

const tokenTypeBearer = "bearer"

type Server struct {
	log *zap.Logger
	uc  *Usecase
}

func NewServer(log *zap.Logger, uc *Usecase) *Server {
	return &Server{log: log, uc: uc}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("GET /auth/verify", s.verify)
	mux.HandleFunc("POST /auth/refresh", s.refresh)
	mux.HandleFunc("GET /auth/me", s.me)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.uc.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	pair, err := s.uc.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    tokenTypeBearer,
	})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	u, err := s.uc.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, authcore.ErrInvalidToken) {
			httpx.WriteDetail(w, http.StatusBadRequest, "Invalid token")
			return
		}
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token := httpx.Bearer(r)
	if token == "" {
		unauthorized(w, "Not authenticated")
		return
	}
	access, err := s.uc.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, authcore.ErrInvalidToken) || errors.Is(err, authcore.ErrRoleMismatch) {
			unauthorized(w, "Invalid refresh token")
			return
		}
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: access, TokenType: tokenTypeBearer})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	token := httpx.Bearer(r)
	if token == "" {
		unauthorized(w, "Not authenticated")
		return
	}
	u, err := s.uc.ResolveCurrentUser(r.Context(), token)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authcore.ErrDuplicateUser):
		httpx.WriteDetail(w, http.StatusBadRequest, "Username or email already registered")
	case errors.Is(err, authcore.ErrInvalidCredentials):
		unauthorized(w, "Incorrect username or password")
	case errors.Is(err, authcore.ErrRoleMismatch):
		unauthorized(w, "Required access token")
	case errors.Is(err, authcore.ErrInvalidToken):
		unauthorized(w, "Could not validate credentials")
	default:
		httpx.WriteInternal(w, s.log, r, err)
	}
}
