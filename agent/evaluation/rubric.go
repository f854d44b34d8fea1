package evaluation

import (
	"bytes"
	"text/template"

	"github.com/gpolydatas/marketing-generator/types"
)

// PassThreshold 每个维度的最低通过分
const PassThreshold = 7

// 评分范围
const (
	MinScore = 1
	MaxScore = 10
)

// BannerDimensions 横幅评分维度，顺序即展示顺序
var BannerDimensions = []string{
	"brand_visibility",
	"message_clarity",
	"cta_effectiveness",
	"visual_appeal",
	"overall_quality",
}

var bannerRubric = template.Must(template.New("banner").Parse(`You are an expert banner advertisement validator. Analyze this banner image and validate it against professional standards.

EXPECTED CONTENT:
- Campaign: {{.Campaign}}
- Brand: {{.Brand}}
- Main Message: {{.Message}}
- Call-to-Action: {{.CTA}}

VALIDATION CRITERIA:

1. BRAND VISIBILITY (1-10): Is there a clear brand name visible and prominent?
   - The text doesn't need to be exactly "{{.Brand}}"; close matches and recognizable brand elements are acceptable.
2. MESSAGE CLARITY (1-10): Is there a clear, readable main message?
   - The message doesn't need to match "{{.Message}}" word-for-word.
3. CTA EFFECTIVENESS (1-10): Is there a clear, prominent call-to-action?
   - Similar action words to "{{.CTA}}" are fine.
4. VISUAL APPEAL (1-10): Is the design eye-catching, modern and professional?
5. OVERALL QUALITY (1-10): Overall professional quality for digital advertising.

Be lenient with text matching. Deduct points only for illegible text, gibberish or missing elements.

SCORING GUIDELINES:
- 9-10: Excellent, professional quality
- 7-8: Good, acceptable for advertising (PASS THRESHOLD)
- 5-6: Fair, but has issues
- 1-4: Poor, needs significant improvement

Respond with JSON only, in exactly this format:
{
  "passed": true/false,
  "scores": {
    "brand_visibility": X,
    "message_clarity": X,
    "cta_effectiveness": X,
    "visual_appeal": X,
    "overall_quality": X
  },
  "issues": ["specific issues found"],
  "recommendations": ["concrete improvements for the next attempt"],
  "feedback": "short overall feedback"
}`))

func renderBannerRubric(req *types.GenerationRequest) (string, error) {
	var buf bytes.Buffer
	if err := bannerRubric.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
