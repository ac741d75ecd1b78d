package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/greenmiles/backend/pkg/logger"
	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/prefs"
)

// UserIDResolver extracts the authenticated user's id from a request. The
// module does not own authentication; the host application injects whatever
// session or token scheme it uses.
type UserIDResolver func(r *http.Request) (int64, error)

// Service exposes a user's notification inbox and email preferences over
// HTTP.
type Service struct {
	store  *messages.Store
	prefs  *prefs.Service
	userID UserIDResolver
	log    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the notifications HTTP service.
func NewService(store *messages.Store, prefsSvc *prefs.Service, userID UserIDResolver, opts ...Option) *Service {
	s := &Service{
		store:  store,
		prefs:  prefsSvc,
		userID: userID,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/notifications", notifications.NewService(store, prefsSvc, sessionUserID).Handle())
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/messages", s.listMessages)
	r.Get("/messages/unread-count", s.unreadCount)
	r.Post("/messages/read", s.markRead)
	r.Delete("/messages/{id}", s.deleteMessage)

	r.Get("/preferences", s.listPreferences)
	r.Put("/preferences", s.updatePreferences)

	return r
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Service) listMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	opts := messages.ListOptions{Limit: defaultPageSize}
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts.Limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	opts.OnlyUnread = q.Get("unread") == "true"

	list, err := s.store.List(r.Context(), userID, opts)
	if err != nil {
		s.serverError(w, r, "failed to list messages", userID, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"messages": list})
}

func (s *Service) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	count, err := s.store.CountUnread(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, "failed to count unread messages", userID, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"unread": count})
}

type markReadRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (s *Service) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := s.store.MarkRead(r.Context(), userID, req.IDs...); err != nil {
		s.serverError(w, r, "failed to mark messages read", userID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := s.store.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, messages.ErrMessageNotFound) {
			s.respondError(w, http.StatusNotFound, "message not found")
			return
		}
		s.serverError(w, r, "failed to delete message", userID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	list, err := s.prefs.ListForUser(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, "failed to list preferences", userID, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"preferences": list})
}

type updatePreferencesRequest struct {
	Changes []prefs.Change `json:"changes"`
}

func (s *Service) updatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Changes) == 0 {
		s.respondError(w, http.StatusBadRequest, "changes is required")
		return
	}

	if err := s.prefs.Update(r.Context(), userID, req.Changes); err != nil {
		s.serverError(w, r, "failed to update preferences", userID, err)
		return
	}

	list, err := s.prefs.ListForUser(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, "failed to list preferences", userID, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"preferences": list})
}

func (s *Service) authenticate(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := s.userID(r)
	if err != nil || userID <= 0 {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return userID, true
}

func (s *Service) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.LogAttrs(context.Background(), slog.LevelError, "failed to encode response", logger.Error(err))
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

func (s *Service) serverError(w http.ResponseWriter, r *http.Request, msg string, userID int64, err error) {
	s.log.LogAttrs(r.Context(), slog.LevelError, msg,
		logger.Component("notifications"),
		logger.UserID(userID),
		logger.Error(err),
	)
	s.respondError(w, http.StatusInternalServerError, "internal error")
}
