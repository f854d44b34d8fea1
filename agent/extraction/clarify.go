package extraction

import (
	"github.com/gpolydatas/marketing-generator/types"
)

var fieldQuestions = map[string]string{
	"brand":             "Which brand should this feature?",
	"message":           "What main message should the banner show?",
	"cta":               "What call-to-action should the button say (for example \"Shop Now\")?",
	"description":       "What should happen in the video (visuals, camera movement)?",
	"video_type":        "How long should the video be: short (4s), standard (6s) or extended (8s)?",
	"source_image_path": "Which banner should I animate? Give me its filename or generate a banner first.",
}

// Clarification 为抽取错误生成面向用户的追问；非抽取错误返回空串
func Clarification(err error) string {
	e, ok := types.AsError(err)
	if !ok {
		return ""
	}
	switch e.Code {
	case types.ErrAmbiguousIntent:
		return "Would you like a static banner image or a video?"
	case types.ErrMissingRequiredField:
		if q, ok := fieldQuestions[e.Field]; ok {
			return q
		}
		return "Could you tell me the " + e.Field + "?"
	}
	return ""
}
