package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/api"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// OutputsHandler 产物列表与下载
type OutputsHandler struct {
	store  persistence.ArtifactStore
	logger *zap.Logger
}

// NewOutputsHandler 创建产物 handler
func NewOutputsHandler(store persistence.ArtifactStore, logger *zap.Logger) *OutputsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutputsHandler{store: store, logger: logger.With(zap.String("handler", "outputs"))}
}

// HandleList GET /v1/outputs?limit=N
// 最新在前，附带 sidecar 元数据
func (h *OutputsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, r, types.NewError(types.ErrInvalidRequest, "limit must be a positive integer").WithField("limit"), h.logger)
			return
		}
		limit = min(n, maxListLimit)
	}

	infos, err := h.store.List(r.Context())
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrStorageFailed, "failed to list outputs").WithCause(err), h.logger)
		return
	}
	if len(infos) > limit {
		infos = infos[:limit]
	}

	out := make([]api.ArtifactResponse, 0, len(infos))
	for _, info := range infos {
		item := api.ArtifactResponse{
			Filename:    info.Filename,
			Size:        info.Bytes,
			Created:     info.Created,
			DownloadURL: DownloadURL(info.Filename),
		}
		if rec, err := persistence.LoadSidecar(info.Path); err == nil {
			item.Metadata = rec
			item.Kind = string(rec.Kind)
		}
		out = append(out, item)
	}
	WriteSuccess(w, r, out)
}

// HandleDownload GET /v1/files/{name}
func (h *OutputsHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := h.store.Resolve(name)
	if err != nil {
		WriteError(w, r, artifactError(err, name), h.logger)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(p)))
	http.ServeFile(w, r, p)
}
