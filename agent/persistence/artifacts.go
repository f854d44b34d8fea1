package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrArtifactNotFound 产物不存在
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrInvalidName 文件名包含路径分隔符或非法字符
var ErrInvalidName = errors.New("invalid artifact name")

// ArtifactInfo 产物文件信息
type ArtifactInfo struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Bytes    int64     `json:"size"`
	Created  time.Time `json:"created"`
}

// ArtifactStore 产物文件存储
type ArtifactStore interface {
	// Create 以 filename 为基础写入一个新文件，重名时追加后缀，返回最终路径与字节数
	Create(ctx context.Context, filename string, r io.Reader) (string, int64, error)
	// Delete 删除产物及其 sidecar；不存在不报错
	Delete(ctx context.Context, path string) error
	// List 列出产物（不含 sidecar），最新在前
	List(ctx context.Context) ([]ArtifactInfo, error)
	// Resolve 将裸文件名解析为目录内路径
	Resolve(name string) (string, error)
	// Dir 输出目录
	Dir() string
}

// artifactExts 列表中视为产物的扩展名
var artifactExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".mp4": true}

// FileStore 基于本地目录的 ArtifactStore
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewFileStore 创建并确保输出目录存在
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: abs, logger: logger.With(zap.String("component", "artifact_store"))}, nil
}

func (s *FileStore) Dir() string { return s.dir }

// Create 先写临时文件再 rename，失败或取消时不留下半截文件
func (s *FileStore) Create(ctx context.Context, filename string, r io.Reader) (string, int64, error) {
	if err := checkName(filename); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		return "", 0, fmt.Errorf("write artifact: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := s.uniquePath(filename)
	if err := os.Rename(tmpPath, final); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("finalize artifact: %w", err)
	}
	s.logger.Debug("artifact written", zap.String("path", final), zap.Int64("bytes", n))
	return final, n, nil
}

// uniquePath 调用方持有 s.mu
func (s *FileStore) uniquePath(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	candidate := filepath.Join(s.dir, filename)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
}

func (s *FileStore) Delete(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if !s.contains(path) {
		return fmt.Errorf("%w: %s is outside the output dir", ErrInvalidName, path)
	}
	for _, p := range []string{path, SidecarPath(path)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", filepath.Base(p), err)
		}
	}
	s.logger.Debug("artifact deleted", zap.String("path", path))
	return nil
}

func (s *FileStore) List(_ context.Context) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	out := make([]ArtifactInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !artifactExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ArtifactInfo{
			Filename: e.Name(),
			Path:     filepath.Join(s.dir, e.Name()),
			Bytes:    info.Size(),
			Created:  info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].Filename > out[j].Filename
		}
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

func (s *FileStore) Resolve(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
		}
		return "", err
	}
	return path, nil
}

func (s *FileStore) contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.dir, abs)
	return err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ctxReader 在每次 Read 前检查 ctx，使大文件下载可被取消
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
