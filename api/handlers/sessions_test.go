package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gpolydatas/marketing-generator/agent/conversation"
	"github.com/gpolydatas/marketing-generator/api"
	"github.com/gpolydatas/marketing-generator/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSessionHandler(t *testing.T) {
	store := conversation.NewMemoryStore(10)
	convo, err := store.Load(context.Background(), "s-1")
	require.NoError(t, err)
	convo.Append(types.NewUserTurn("banner for Acme"))
	convo.Append(types.NewAgentTurn("Here you go", &types.ArtifactRef{Kind: types.KindBanner, Path: "/out/a.png"}))
	require.NoError(t, store.Save(context.Background(), "s-1", convo))

	h := NewSessionHandler(store, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sessions/{id}", h.HandleGet)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.HandleDelete)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/s-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, 10, resp.Capacity)
	require.Len(t, resp.Turns, 2)
	assert.Equal(t, types.RoleUser, resp.Turns[0].Role)
	assert.Equal(t, "/out/a.png", resp.Turns[1].Artifact.Path)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/sessions/s-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.Len())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/s-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.ErrSessionNotFound), decodeEnvelope(t, w).Error.Code)
}
