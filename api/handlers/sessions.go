package handlers

import (
	"net/http"

	"github.com/gpolydatas/marketing-generator/agent/conversation"
	"github.com/gpolydatas/marketing-generator/api"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// SessionHandler 会话查看与清理
type SessionHandler struct {
	store  conversation.SessionStore
	logger *zap.Logger
}

// NewSessionHandler 创建会话 handler
func NewSessionHandler(store conversation.SessionStore, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{store: store, logger: logger.With(zap.String("handler", "sessions"))}
}

// HandleGet GET /v1/sessions/{id}
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	convo, err := h.store.Load(r.Context(), id)
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrServiceUnavailable, "failed to load session").WithCause(err), h.logger)
		return
	}
	// 空会话与不存在的会话不可区分
	if convo.Len() == 0 {
		WriteErrorMessage(w, r, types.ErrSessionNotFound, "session not found", h.logger)
		return
	}
	WriteSuccess(w, r, api.SessionResponse{
		SessionID: id,
		Turns:     convo.Snapshot(),
		Capacity:  convo.Cap(),
	})
}

// HandleDelete DELETE /v1/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		WriteError(w, r, types.NewError(types.ErrServiceUnavailable, "failed to delete session").WithCause(err), h.logger)
		return
	}
	h.logger.Info("session cleared", zap.String("session_id", id))
	WriteSuccess(w, r, map[string]string{"session_id": id, "status": "cleared"})
}
