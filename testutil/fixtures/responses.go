// =============================================================================
// 📦 测试数据工厂 - 抽取 / 校验响应与图片样本
// =============================================================================
package fixtures

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// 🎯 抽取器响应
// =============================================================================

// ExtractionJSON 构造抽取器 LLM 的 JSON 回复
func ExtractionJSON(fields map[string]any) string {
	b, _ := json.Marshal(fields)
	return string(b)
}

// BlackFridayBannerExtraction "Create a Black Friday banner for Nike, 50% off, Shop Now"
func BlackFridayBannerExtraction() string {
	return ExtractionJSON(map[string]any{
		"kind":        "banner",
		"confidence":  0.95,
		"campaign":    "Black Friday",
		"brand":       "Nike",
		"message":     "50% off",
		"cta":         "Shop Now",
		"banner_type": "social",
	})
}

// AnimateExtraction "Now animate it with a zoom effect"
func AnimateExtraction() string {
	return ExtractionJSON(map[string]any{
		"kind":        "image_to_video",
		"confidence":  0.9,
		"description": "zoom effect",
		"video_type":  "short",
	})
}

// =============================================================================
// 🎯 校验器响应
// =============================================================================

// BannerScores 构造视觉校验 JSON 回复
func BannerScores(brand, message, cta, visual, overall int, recommendations ...string) string {
	b, _ := json.Marshal(map[string]any{
		"scores": map[string]int{
			"brand_visibility":  brand,
			"message_clarity":   message,
			"cta_effectiveness": cta,
			"visual_appeal":     visual,
			"overall_quality":   overall,
		},
		"passed":          brand >= 7 && message >= 7 && cta >= 7 && visual >= 7 && overall >= 7,
		"issues":          []string{},
		"recommendations": recommendations,
		"feedback":        "scored",
	})
	return string(b)
}

// PassingScores 所有维度 8 分
func PassingScores() string { return BannerScores(8, 8, 8, 8, 8) }

// =============================================================================
// 🎯 图片样本
// =============================================================================

// PNG 返回 w×h 纯色 PNG
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// WriteBanner 在 dir 下写入一张 PNG 并返回路径
func WriteBanner(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PNG(4, 4), 0o644); err != nil {
		t.Fatalf("write banner fixture: %v", err)
	}
	return path
}
