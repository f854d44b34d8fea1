package workflow

import (
	"fmt"
	"strings"

	"github.com/gpolydatas/marketing-generator/agent/evaluation"
	"github.com/gpolydatas/marketing-generator/types"
)

// replyText 面向用户的代理回复
func replyText(out *Outcome) string {
	switch out.State {
	case StateAccepted:
		return acceptedReply(out)
	case StateExhausted:
		w := out.Winner
		return fmt.Sprintf("Here is the best %s after %d attempts: %s. It did not pass the quality check (%s), so treat it as a draft.",
			noun(w.Request.Kind), len(out.Attempts), w.Result.Filename, scoreLine(w.Validation))
	}

	if out.Clarification != "" {
		return out.Clarification
	}
	if cancelled(out.Err) {
		return "The request was cancelled before it finished."
	}
	if e, ok := types.AsError(out.Err); ok {
		if types.IsGenerationError(e) {
			return fmt.Sprintf("Sorry, generation failed after %d attempts: %s. Please try again later.", len(out.Attempts), e.Message)
		}
		return "Sorry, I couldn't do that: " + e.Message + "."
	}
	return "Sorry, something went wrong while generating your content."
}

func acceptedReply(out *Outcome) string {
	w := out.Winner
	head := fmt.Sprintf("Your %s is ready: %s (%s).", noun(w.Request.Kind), w.Result.Filename, w.Result.SizeOrDuration())
	switch w.Validation.Status {
	case types.ValidationManualReview:
		return head + " Videos are not scored automatically, please review it before publishing."
	case types.ValidationUnavailable:
		return head + " The quality check was unavailable, so it has not been scored."
	}
	if len(out.Attempts) > 1 {
		return fmt.Sprintf("%s Passed the quality check on attempt %d (%s).", head, len(out.Attempts), scoreLine(w.Validation))
	}
	return fmt.Sprintf("%s Passed the quality check (%s).", head, scoreLine(w.Validation))
}

func noun(k types.Kind) string {
	if k.IsVideo() {
		return "video"
	}
	return "banner"
}

func scoreLine(v *types.ValidationResult) string {
	if v == nil || len(v.Scores) == 0 {
		return "no scores"
	}
	parts := make([]string, 0, len(evaluation.BannerDimensions))
	for _, d := range evaluation.BannerDimensions {
		if s, ok := v.Scores[d]; ok {
			parts = append(parts, fmt.Sprintf("%s %d/10", strings.ReplaceAll(d, "_", " "), s))
		}
	}
	return strings.Join(parts, ", ")
}
