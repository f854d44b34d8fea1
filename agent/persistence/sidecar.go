package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SidecarPath 返回产物旁的元数据文件路径，如 banner_x.png -> banner_x.json
func SidecarPath(artifactPath string) string {
	return strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath)) + ".json"
}

// SidecarStore 将元数据写到产物旁的 .json 文件
type SidecarStore struct{}

func NewSidecarStore() *SidecarStore { return &SidecarStore{} }

func (s *SidecarStore) Name() string { return "sidecar" }

func (s *SidecarStore) Save(ctx context.Context, artifactPath string, rec *MetadataRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	path := SidecarPath(artifactPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize sidecar: %w", err)
	}
	return nil
}

// LoadSidecar 读取产物的 sidecar 元数据
func LoadSidecar(artifactPath string) (*MetadataRecord, error) {
	data, err := os.ReadFile(SidecarPath(artifactPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, filepath.Base(SidecarPath(artifactPath)))
		}
		return nil, err
	}
	var rec MetadataRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	return &rec, nil
}
