package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// KindCount 按类型聚合的记录数
type KindCount struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// GormStore 将元数据写入 generation_records 表
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore 创建 gorm 元数据存储。表结构由 internal/migration 管理，
// autoMigrate 仅用于测试与 sqlite 开发环境。
func NewGormStore(db *gorm.DB, autoMigrate bool, logger *zap.Logger) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm store requires a database")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if autoMigrate {
		if err := db.AutoMigrate(&MetadataRecord{}); err != nil {
			return nil, fmt.Errorf("auto migrate generation_records: %w", err)
		}
	}
	return &GormStore{db: db, logger: logger.With(zap.String("component", "metadata_db"))}, nil
}

func (s *GormStore) Name() string { return "database" }

func (s *GormStore) Save(ctx context.Context, _ string, rec *MetadataRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert generation record: %w", err)
	}
	s.logger.Debug("generation record saved",
		zap.Uint("id", rec.ID),
		zap.String("filename", rec.Filename))
	return nil
}

// Recent 返回最近的记录，最新在前
func (s *GormStore) Recent(ctx context.Context, limit int) ([]MetadataRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []MetadataRecord
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query generation records: %w", err)
	}
	return recs, nil
}

// FindByFilename 按文件名查询
func (s *GormStore) FindByFilename(ctx context.Context, filename string) (*MetadataRecord, error) {
	var rec MetadataRecord
	err := s.db.WithContext(ctx).Where("filename = ?", filename).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, filename)
		}
		return nil, err
	}
	return &rec, nil
}

// CountByKind 管理接口统计使用
func (s *GormStore) CountByKind(ctx context.Context) ([]KindCount, error) {
	var out []KindCount
	err := s.db.WithContext(ctx).Model(&MetadataRecord{}).
		Select("kind, count(*) as count").
		Group("kind").
		Order("kind").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("count generation records: %w", err)
	}
	return out, nil
}
