package extraction

import (
	"path/filepath"
	"regexp"

	"github.com/gpolydatas/marketing-generator/types"
)

var (
	imageFileRe  = regexp.MustCompile(`(?i)[\w\-.]+\.(?:png|jpe?g)\b`)
	bannerFileRe = regexp.MustCompile(`(?i)\bbanner_[\w\-.]*\.(?:png|jpe?g)\b`)
)

// ExplicitImage 返回文本中第一个图片文件名（不含目录）
func ExplicitImage(text string) string {
	return imageFileRe.FindString(text)
}

// ResolveSourceImage 按固定优先级确定图生视频的源图路径，找不到返回空串。
// 文本中的文件名相对 outputDir 解析；Artifact 路径原样返回。
func ResolveSourceImage(text string, snapshot []types.ConversationTurn, outputDir string) string {
	if name := ExplicitImage(text); name != "" {
		return filepath.Join(outputDir, name)
	}
	for i := len(snapshot) - 1; i >= 0; i-- {
		turn := snapshot[i]
		if a := turn.Artifact; a != nil && a.Kind == types.KindBanner && a.Path != "" {
			return a.Path
		}
		if name := bannerFileRe.FindString(turn.Text); name != "" {
			return filepath.Join(outputDir, name)
		}
	}
	return ""
}
