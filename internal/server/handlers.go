package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/auth"
)

// ────────────────────────────────────────────────────────────────────────────
// Session
// ────────────────────────────────────────────────────────────────────────────

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

// handleLogin checks credentials against the users table of the connected
// database and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	store, ok := s.users(w)
	if !ok {
		return
	}

	user, err := store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			loginsTotal.WithLabelValues("rejected").Inc()
			log.Warn().Str("email", req.Email).Msg("login rejected")
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		loginsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("issue session token")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	loginsTotal.WithLabelValues("ok").Inc()
	log.Info().Int64("user_id", user.ID).Msg("login")
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleLogout revokes the presented token until it would have expired.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := sessionClaims(r)
	if s.revoker != nil && claims != nil && claims.ExpiresAt != nil {
		if err := s.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			log.Error().Err(err).Msg("revoke token")
			writeError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	store, ok := s.users(w)
	if !ok {
		return
	}
	users, err := store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list users")
		writeError(w, http.StatusInternalServerError, "list users failed")
		return
	}
	total, err := store.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("count users")
		writeError(w, http.StatusInternalServerError, "list users failed")
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, users)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// handleSetRole changes another user's role. An empty role clears it.
func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if !auth.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "unknown role "+strconv.Quote(req.Role))
		return
	}

	store, ok := s.users(w)
	if !ok {
		return
	}
	if err := store.SetRole(r.Context(), id, req.Role); err != nil {
		s.userWriteFailed(w, err, "set role")
		return
	}
	user, err := store.FindByID(r.Context(), id)
	if err != nil {
		s.userWriteFailed(w, err, "set role")
		return
	}
	log.Info().Int64("user_id", id).Str("role", req.Role).Msg("role changed")
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes another user.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	store, ok := s.users(w)
	if !ok {
		return
	}
	if err := store.Delete(r.Context(), id); err != nil {
		s.userWriteFailed(w, err, "delete user")
		return
	}
	log.Info().Int64("user_id", id).Msg("user deleted")
	w.WriteHeader(http.StatusNoContent)
}

// targetUser parses the {id} parameter. Admins cannot change or remove
// their own account, so at least one admin always remains.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	if claims := sessionClaims(r); claims != nil && claims.User.ID == id {
		writeError(w, http.StatusConflict, "cannot modify your own account")
		return 0, false
	}
	return id, true
}

func (s *Server) userWriteFailed(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	log.Error().Err(err).Msg(op)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

// ────────────────────────────────────────────────────────────────────────────
// Storage
// ────────────────────────────────────────────────────────────────────────────

type storageTokenRequest struct {
	Name string `json:"name"`
}

type storageTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleStorageToken issues a short-lived token for one file in the storage
// directory. The token alone authorizes the download.
func (s *Server) handleStorageToken(w http.ResponseWriter, r *http.Request) {
	var req storageTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	path, ok := s.storagePath(req.Name)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	token, err := s.tokens.IssueTransfer(auth.File{Name: req.Name, Size: info.Size()})
	if err != nil {
		log.Error().Err(err).Msg("issue transfer token")
		writeError(w, http.StatusInternalServerError, "token failed")
		return
	}
	claims, err := s.tokens.ParseTransfer(token)
	if err != nil {
		log.Error().Err(err).Msg("verify transfer token")
		writeError(w, http.StatusInternalServerError, "token failed")
		return
	}

	writeJSON(w, http.StatusOK, storageTokenResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time})
}

// handleDownload streams the file named by a transfer token.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.ParseTransfer(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	path, ok := s.storagePath(claims.File.Name)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stat failed")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+claims.File.Name+`"`)
	http.ServeContent(w, r, claims.File.Name, info.ModTime(), f)
}

// ────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────

// users returns a store over the current connection, answering 503 when the
// dashboard is not connected.
func (s *Server) users(w http.ResponseWriter) (*auth.Store, bool) {
	conn, err := s.service.Conn()
	if err != nil {
		if errors.Is(err, app.ErrNotConnected) {
			writeError(w, http.StatusServiceUnavailable, "no database connected")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return auth.NewStore(conn), true
}

// currentUser loads the session's user from the store.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	claims := sessionClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing session")
		return auth.User{}, false
	}
	store, ok := s.users(w)
	if !ok {
		return auth.User{}, false
	}
	user, err := store.FindByID(r.Context(), claims.User.ID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "user no longer exists")
			return auth.User{}, false
		}
		log.Error().Err(err).Msg("load user")
		writeError(w, http.StatusInternalServerError, "load user failed")
		return auth.User{}, false
	}
	return user, true
}

// storagePath resolves a plain file name inside the storage directory.
func (s *Server) storagePath(name string) (string, bool) {
	if s.opts.StorageDir == "" || name == "" || name == "." || name == ".." {
		return "", false
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", false
	}
	return filepath.Join(s.opts.StorageDir, name), true
}
