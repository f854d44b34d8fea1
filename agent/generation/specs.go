package generation

import (
	"fmt"
	"sort"

	"github.com/gpolydatas/marketing-generator/llm/image"
)

// BannerSpec 横幅规格
type BannerSpec struct {
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Description string `json:"description"`
}

// Dimensions 形如 1200x628
func (s BannerSpec) Dimensions() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// ProviderSize 映射到 DALL-E 支持的尺寸
func (s BannerSpec) ProviderSize() string {
	switch {
	case s.Width == s.Height:
		return image.SizeSquare
	case s.Width > s.Height:
		return image.SizeWide
	default:
		return image.SizeTall
	}
}

// BannerSpecs 已知横幅类型
var BannerSpecs = map[string]BannerSpec{
	"social":      {Name: "social", Width: 1200, Height: 628, Description: "Social media post (Facebook, LinkedIn)"},
	"leaderboard": {Name: "leaderboard", Width: 728, Height: 90, Description: "Website header banner"},
	"square":      {Name: "square", Width: 1024, Height: 1024, Description: "Square social post (Instagram)"},
}

// DefaultBannerType 未指定时的横幅类型
const DefaultBannerType = "social"

// LookupBanner 查找横幅规格
func LookupBanner(name string) (BannerSpec, bool) {
	s, ok := BannerSpecs[name]
	return s, ok
}

// BannerTypes 按名称排序的横幅规格
func BannerTypes() []BannerSpec {
	out := make([]BannerSpec, 0, len(BannerSpecs))
	for _, s := range BannerSpecs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// VideoSpec 视频时长规格
type VideoSpec struct {
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
}

// VideoSpecs 已知视频类型
var VideoSpecs = map[string]VideoSpec{
	"short":    {Name: "short", DurationSeconds: 4},
	"standard": {Name: "standard", DurationSeconds: 6},
	"extended": {Name: "extended", DurationSeconds: 8},
}

// DefaultVideoType 未指定时的视频类型
const DefaultVideoType = "short"

// LookupVideo 查找视频规格
func LookupVideo(name string) (VideoSpec, bool) {
	s, ok := VideoSpecs[name]
	return s, ok
}
