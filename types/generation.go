package types

import (
	"fmt"
	"time"
)

// Kind discriminates generation requests.
type Kind string

const (
	KindBanner       Kind = "banner"
	KindVideo        Kind = "video"
	KindImageToVideo Kind = "image_to_video"
)

// ParseKind parses a kind name, accepting a few common spellings.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "banner", "image", "Banner":
		return KindBanner, nil
	case "video", "Video":
		return KindVideo, nil
	case "image_to_video", "image-to-video", "ImageToVideo":
		return KindImageToVideo, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// IsVideo reports whether the kind produces a video artifact.
func (k Kind) IsVideo() bool {
	return k == KindVideo || k == KindImageToVideo
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBanner, KindVideo, KindImageToVideo:
		return true
	}
	return false
}

// GenerationRequest is the structured command produced by the extractor.
// It is treated as immutable once handed to a generator.
type GenerationRequest struct {
	Kind                   Kind   `json:"kind"`
	Campaign               string `json:"campaign,omitempty"`
	Brand                  string `json:"brand,omitempty"`
	Message                string `json:"message,omitempty"`
	CTA                    string `json:"cta,omitempty"`
	BannerType             string `json:"banner_type,omitempty"`
	VideoType              string `json:"video_type,omitempty"`
	Description            string `json:"description,omitempty"`
	Resolution             string `json:"resolution,omitempty"`
	AspectRatio            string `json:"aspect_ratio,omitempty"`
	VideoModel             string `json:"model,omitempty"`
	SourceImagePath        string `json:"source_image_path,omitempty"`
	AdditionalInstructions string `json:"additional_instructions,omitempty"`
}

// Fields returns the non-empty named parameters of the request.
func (r *GenerationRequest) Fields() map[string]string {
	all := map[string]string{
		"campaign":                r.Campaign,
		"brand":                   r.Brand,
		"message":                 r.Message,
		"cta":                     r.CTA,
		"banner_type":             r.BannerType,
		"video_type":              r.VideoType,
		"description":             r.Description,
		"resolution":              r.Resolution,
		"aspect_ratio":            r.AspectRatio,
		"model":                   r.VideoModel,
		"source_image_path":       r.SourceImagePath,
		"additional_instructions": r.AdditionalInstructions,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// WithAdditionalInstructions returns a copy carrying the given instructions.
func (r GenerationRequest) WithAdditionalInstructions(s string) *GenerationRequest {
	r.AdditionalInstructions = s
	return &r
}

// GenerationResult describes one artifact written by a generator.
type GenerationResult struct {
	ArtifactPath     string            `json:"artifact_path"`
	Filename         string            `json:"filename"`
	ProviderMetadata map[string]string `json:"provider_metadata,omitempty"`
	Size             string            `json:"size,omitempty"`
	DurationSeconds  int               `json:"duration_seconds,omitempty"`
	Bytes            int64             `json:"bytes"`
	CreatedAt        time.Time         `json:"created_at"`
}

// SizeOrDuration renders the size for images and the duration for videos.
func (r *GenerationResult) SizeOrDuration() string {
	if r.DurationSeconds > 0 {
		return fmt.Sprintf("%ds", r.DurationSeconds)
	}
	return r.Size
}

// ValidationStatus distinguishes how a ValidationResult was reached.
type ValidationStatus string

const (
	ValidationPassed       ValidationStatus = "passed"
	ValidationFailed       ValidationStatus = "failed"
	ValidationManualReview ValidationStatus = "manual_review"
	ValidationUnavailable  ValidationStatus = "unavailable"
)

// ValidationResult is the scored verdict on one artifact.
type ValidationResult struct {
	Scores          map[string]int   `json:"scores"`
	Passed          bool             `json:"passed"`
	Status          ValidationStatus `json:"status"`
	Issues          []string         `json:"issues,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Feedback        string           `json:"feedback,omitempty"`
}

// Automated reports whether the verdict came from an automated scoring pass.
func (v *ValidationResult) Automated() bool {
	return v != nil && (v.Status == ValidationPassed || v.Status == ValidationFailed)
}

// AttemptRecord captures one generate/validate cycle.
type AttemptRecord struct {
	Attempt    int                `json:"attempt"`
	Request    *GenerationRequest `json:"request"`
	Result     *GenerationResult  `json:"result,omitempty"`
	Validation *ValidationResult  `json:"validation,omitempty"`
	Err        error              `json:"-"`
}
