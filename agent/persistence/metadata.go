package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gpolydatas/marketing-generator/types"
)

// Scores 以 JSON 列形式存储的评分
type Scores map[string]int

// Value 实现 driver.Valuer
func (s Scores) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (s *Scores) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = Scores{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported scores column type %T", value)
	}
	m := map[string]int{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode scores: %w", err)
		}
	}
	*s = m
	return nil
}

// MetadataRecord 描述一次运行的胜出产物
type MetadataRecord struct {
	ID               uint                   `gorm:"primaryKey" json:"-"`
	RunID            string                 `gorm:"size:64;index" json:"run_id"`
	Kind             types.Kind             `gorm:"size:32;index" json:"type"`
	Campaign         string                 `gorm:"size:255" json:"campaign,omitempty"`
	Brand            string                 `gorm:"size:255;index" json:"brand,omitempty"`
	Filename         string                 `gorm:"size:255;uniqueIndex" json:"filename"`
	Size             string                 `gorm:"size:32" json:"size,omitempty"`
	DurationSeconds  int                    `json:"duration_seconds,omitempty"`
	Scores           Scores                 `gorm:"type:text" json:"validation_scores"`
	Attempts         int                    `json:"attempts"`
	ValidationStatus types.ValidationStatus `gorm:"size:32" json:"validation_status"`
	Unvalidated      bool                   `json:"unvalidated,omitempty"`
	QualityUnknown   bool                   `json:"quality_unknown,omitempty"`
	SourceBanner     string                 `gorm:"size:255" json:"source_banner,omitempty"`
	Model            string                 `gorm:"size:64" json:"model,omitempty"`
	CreatedAt        time.Time              `json:"timestamp"`
}

// TableName 指定表名
func (MetadataRecord) TableName() string { return "generation_records" }

// NewMetadataRecord 由胜出尝试构建元数据
func NewMetadataRecord(runID string, winner *types.AttemptRecord, attempts int) *MetadataRecord {
	rec := &MetadataRecord{RunID: runID, Attempts: attempts, CreatedAt: time.Now().UTC()}
	if winner == nil {
		return rec
	}
	if req := winner.Request; req != nil {
		rec.Kind = req.Kind
		rec.Campaign = req.Campaign
		rec.Brand = req.Brand
		if req.SourceImagePath != "" {
			rec.SourceBanner = filepath.Base(req.SourceImagePath)
		}
	}
	if res := winner.Result; res != nil {
		rec.Filename = res.Filename
		rec.Size = res.Size
		rec.DurationSeconds = res.DurationSeconds
		rec.Model = res.ProviderMetadata["model"]
		if !res.CreatedAt.IsZero() {
			rec.CreatedAt = res.CreatedAt.UTC()
		}
	}
	if v := winner.Validation; v != nil {
		rec.Scores = Scores(v.Scores)
		rec.ValidationStatus = v.Status
	}
	return rec
}

// MetadataStore 元数据存储
type MetadataStore interface {
	// Save 写入一条记录；artifactPath 为产物的完整路径
	Save(ctx context.Context, artifactPath string, rec *MetadataRecord) error
	// Name 后端名称，用于日志
	Name() string
}
