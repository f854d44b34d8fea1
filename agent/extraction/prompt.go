package extraction

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gpolydatas/marketing-generator/llm/tokenizer"
	"github.com/gpolydatas/marketing-generator/types"
)

// instructionPrompt 抽取指令，要求模型只输出 JSON
const instructionPrompt = `You classify marketing content requests for a generation pipeline.

Decide what the user wants from their LATEST message, using the conversation for context:
- "banner": a static image (banner, image, poster, display ad, website banner)
- "video": a video generated from text (video, clip, motion, story, reel, tiktok)
- "image_to_video": animate an existing banner ("animate it", "turn the banner into a video",
  or any message naming a .png/.jpg file)

Extract the parameters the user gave. Do not invent brand names, messages or CTAs.
- banner_type: leaderboard | social | square
- video_type: short (4s) | standard (6s) | extended (8s)
- resolution: 720p | 1080p
- aspect_ratio: 16:9 | 9:16 | 1:1
- model: "veo" or "runway" if the user asked for one ("use runway", "gen-3", "google veo")
- description: for videos, the visual action or camera MOTION only, never a filename

Set confidence between 0 and 1. If you cannot tell which kind is wanted, set kind to "" and confidence below 0.5.

Respond with a single JSON object and nothing else:
{"kind": "", "confidence": 0.0, "campaign": "", "brand": "", "message": "", "cta": "",
 "banner_type": "", "video_type": "", "description": "", "resolution": "", "aspect_ratio": "",
 "model": "", "source_image": ""}`

// renderTurn 单轮对话的文本表示
func renderTurn(t types.ConversationTurn) string {
	line := fmt.Sprintf("%s: %s", t.Role, strings.TrimSpace(t.Text))
	if t.Artifact != nil {
		line += fmt.Sprintf(" [delivered %s: %s]", t.Artifact.Kind, filepath.Base(t.Artifact.Path))
	}
	return line
}

// renderContext 渲染对话上下文，从最旧的轮次开始丢弃直到满足 token 预算
func renderContext(counter tokenizer.Counter, snapshot []types.ConversationTurn, budget int) (string, int) {
	if len(snapshot) == 0 {
		return "", 0
	}
	lines := make([]string, len(snapshot))
	for i, t := range snapshot {
		lines[i] = renderTurn(t)
	}
	kept := tokenizer.TrimToBudget(counter, lines, budget)
	return strings.Join(kept, "\n"), len(snapshot) - len(kept)
}

func userMessage(text, history string) string {
	var b strings.Builder
	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	b.WriteString("Latest user message:\n")
	b.WriteString(strings.TrimSpace(text))
	return b.String()
}
