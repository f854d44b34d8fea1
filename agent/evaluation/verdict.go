package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/gpolydatas/marketing-generator/types"
)

// rawVerdict 模型回复；passed 字段只解析不使用
type rawVerdict struct {
	Passed          *bool              `json:"passed"`
	Scores          map[string]float64 `json:"scores"`
	Issues          []string           `json:"issues"`
	Recommendations []string           `json:"recommendations"`
	Feedback        string             `json:"feedback"`
}

// parseVerdict 解析模型回复并按维度重新判定
func parseVerdict(content string, dims []string) (*types.ValidationResult, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in validator reply")
	}
	var v rawVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode validator reply: %w", err)
	}
	if len(v.Scores) == 0 {
		return nil, fmt.Errorf("validator reply has no scores")
	}

	scores := make(map[string]int, len(dims))
	for _, d := range dims {
		if s, ok := v.Scores[d]; ok {
			scores[d] = scoreOf(s)
		}
	}

	result := &types.ValidationResult{
		Scores:          scores,
		Issues:          v.Issues,
		Recommendations: v.Recommendations,
		Feedback:        v.Feedback,
	}
	for _, d := range dims {
		if _, ok := scores[d]; !ok {
			result.Issues = append(result.Issues, "missing score: "+d)
		}
	}
	result.Passed = Passes(scores, dims)
	if result.Passed {
		result.Status = types.ValidationPassed
	} else {
		result.Status = types.ValidationFailed
	}
	return result, nil
}

// Passes 所有维度都存在且不低于 PassThreshold
func Passes(scores map[string]int, dims []string) bool {
	if len(dims) == 0 {
		return false
	}
	for _, d := range dims {
		s, ok := scores[d]
		if !ok || s < PassThreshold {
			return false
		}
	}
	return true
}

// Recommendations 合并建议，供下一次尝试的 additional_instructions 使用
func Recommendations(v *types.ValidationResult) string {
	if v == nil {
		return ""
	}
	var lines []string
	for _, r := range v.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			lines = append(lines, "- "+r)
		}
	}
	if len(lines) == 0 {
		for _, d := range BannerDimensions {
			if s, ok := v.Scores[d]; ok && s < PassThreshold {
				lines = append(lines, fmt.Sprintf("- Improve %s (scored %d/10)", strings.ReplaceAll(d, "_", " "), s))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// scoreOf 先在浮点域夹到 [MinScore, MaxScore] 再取整，超出 int 范围的值不会回绕
func scoreOf(s float64) int {
	return int(math.Round(math.Min(math.Max(s, MinScore), MaxScore)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
