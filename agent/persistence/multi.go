package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// MultiStore 依次写入多个后端。sidecar 为必需后端，其余失败只记录警告。
type MultiStore struct {
	primary   MetadataStore
	secondary []MetadataStore
	logger    *zap.Logger
}

// NewMultiStore primary 失败时 Save 返回错误
func NewMultiStore(logger *zap.Logger, primary MetadataStore, secondary ...MetadataStore) *MultiStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	var rest []MetadataStore
	for _, s := range secondary {
		if s != nil {
			rest = append(rest, s)
		}
	}
	return &MultiStore{primary: primary, secondary: rest, logger: logger.With(zap.String("component", "metadata"))}
}

func (m *MultiStore) Name() string { return "multi" }

func (m *MultiStore) Save(ctx context.Context, artifactPath string, rec *MetadataRecord) error {
	if m.primary == nil {
		return errors.New("no primary metadata store")
	}
	if err := m.primary.Save(ctx, artifactPath, rec); err != nil {
		return fmt.Errorf("%s: %w", m.primary.Name(), err)
	}
	for _, s := range m.secondary {
		if err := s.Save(ctx, artifactPath, rec); err != nil {
			m.logger.Warn("secondary metadata store failed",
				zap.String("store", s.Name()),
				zap.String("filename", rec.Filename),
				zap.Error(err))
		}
	}
	return nil
}
