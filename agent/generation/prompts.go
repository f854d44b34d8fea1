package generation

import (
	"fmt"
	"strings"

	"github.com/gpolydatas/marketing-generator/types"
)

// BannerPrompt 构造横幅提示词，文字准确性优先
func BannerPrompt(req *types.GenerationRequest, spec BannerSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a professional banner advertisement for %s's %s.\n\n", req.Brand, req.Campaign)
	b.WriteString("CRITICAL - TEXT MUST BE EXACT AND LEGIBLE:\n")
	fmt.Fprintf(&b, "- Brand name: %q (spell exactly, make it LARGE and BOLD)\n", req.Brand)
	fmt.Fprintf(&b, "- Main message: %q (use these exact words, clear and readable)\n", req.Message)
	fmt.Fprintf(&b, "- CTA button: %q (spell exactly, on a prominent button)\n\n", req.CTA)
	b.WriteString("DESIGN REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Dimensions: %s pixels\n", spec.Dimensions())
	b.WriteString("- Style: clean, modern, professional advertising\n")
	b.WriteString("- Layout: simple and uncluttered, text is the focus\n")
	b.WriteString("- Typography: sans-serif, high contrast, very legible\n")
	b.WriteString("- Brand name is the largest element; the CTA button uses a bright color\n")
	b.WriteString("- Background must not interfere with text readability\n\n")
	b.WriteString("TEXT HIERARCHY (in order of size):\n")
	fmt.Fprintf(&b, "1. %q - biggest, boldest, top or center\n", req.Brand)
	fmt.Fprintf(&b, "2. %q - medium size, center area\n", req.Message)
	fmt.Fprintf(&b, "3. %q - on the button\n\n", req.CTA)
	b.WriteString("No decorative text or extra words. Make the text perfect.")

	if req.AdditionalInstructions != "" {
		fmt.Fprintf(&b, "\n\nIMPROVEMENTS FOR THIS ATTEMPT:\n%s", req.AdditionalInstructions)
		fmt.Fprintf(&b, "\n\nREMINDER: Brand=%q, Message=%q, CTA=%q - spell exactly!", req.Brand, req.Message, req.CTA)
	}
	return b.String()
}

// VideoPrompt 构造视频提示词
func VideoPrompt(req *types.GenerationRequest, spec VideoSpec) string {
	brand := orDefault(req.Brand, "the brand")
	campaign := orDefault(req.Campaign, "campaign")

	var b strings.Builder
	if req.Kind == types.KindImageToVideo {
		fmt.Fprintf(&b, "Animate this banner for %s's %s.\n\n", brand, campaign)
		b.WriteString("MOTION:\n")
	} else {
		fmt.Fprintf(&b, "Create a professional promotional video for %s's %s.\n\n", brand, campaign)
		b.WriteString("VIDEO DESCRIPTION:\n")
	}
	b.WriteString(req.Description)
	b.WriteString("\n\nVISUAL REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Brand: %s, shown naturally in the scene\n", brand)
	fmt.Fprintf(&b, "- Duration: %d seconds\n", spec.DurationSeconds)
	b.WriteString("- Cinematic, professional, smooth camera movement\n")
	b.WriteString("- Suitable for digital advertising\n\n")
	b.WriteString("TECHNICAL:\n")
	fmt.Fprintf(&b, "- %s resolution\n", req.Resolution)
	fmt.Fprintf(&b, "- %s aspect ratio", req.AspectRatio)

	if req.AdditionalInstructions != "" {
		fmt.Fprintf(&b, "\n\nADDITIONAL REQUIREMENTS:\n%s", req.AdditionalInstructions)
	}
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
