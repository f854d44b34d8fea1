package evaluation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/testutil"
	"github.com/gpolydatas/marketing-generator/testutil/fixtures"
	"github.com/gpolydatas/marketing-generator/testutil/mocks"
	"github.com/gpolydatas/marketing-generator/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func bannerRequest() *types.GenerationRequest {
	return &types.GenerationRequest{
		Kind:       types.KindBanner,
		Campaign:   "Black Friday",
		Brand:      "Nike",
		Message:    "50% off",
		CTA:        "Shop Now",
		BannerType: "social",
	}
}

func TestVisionValidator_BannerPass(t *testing.T) {
	dir := testutil.OutputDir(t)
	path := fixtures.WriteBanner(t, dir, "banner_social_1200x628_20241129_120000.png")
	provider := mocks.NewMockProvider().WithResponse("Here you go:\n" + fixtures.PassingScores())

	v := NewVisionValidator(provider, VisionValidatorConfig{Model: "gpt-4o"}, zaptest.NewLogger(t))
	result, err := v.Validate(testutil.TestContext(t), path, bannerRequest())
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, types.ValidationPassed, result.Status)
	assert.Len(t, result.Scores, 5)
	assert.Equal(t, 8, result.Scores["brand_visibility"])

	req := provider.LastRequest()
	require.NotNil(t, req)
	assert.True(t, req.JSONMode)
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Images, 1)
	assert.Equal(t, "image/png", req.Messages[0].Images[0].MediaType)
	assert.NotEmpty(t, req.Messages[0].Images[0].Data)
	assert.Contains(t, req.Messages[0].Content, "Brand: Nike")
	assert.Contains(t, req.Messages[0].Content, "Call-to-Action: Shop Now")
}

func TestVisionValidator_BannerFailKeepsRecommendations(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")
	provider := mocks.NewMockProvider().WithResponse(
		fixtures.BannerScores(5, 8, 8, 8, 8, "Make the brand name larger"))

	v := NewVisionValidator(provider, VisionValidatorConfig{}, nil)
	result, err := v.Validate(context.Background(), path, bannerRequest())
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, types.ValidationFailed, result.Status)
	assert.Equal(t, []string{"Make the brand name larger"}, result.Recommendations)
	assert.Equal(t, "- Make the brand name larger", Recommendations(result))
}

func TestVisionValidator_IgnoresModelPassedFlag(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")
	reply := `{"passed": true, "scores": {"brand_visibility": 9, "message_clarity": 6,
		"cta_effectiveness": 9, "visual_appeal": 9, "overall_quality": 9}}`
	v := NewVisionValidator(mocks.NewMockProvider().WithResponse(reply), VisionValidatorConfig{}, nil)

	result, err := v.Validate(context.Background(), path, bannerRequest())
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestVisionValidator_MissingDimensionFails(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")
	reply := `{"passed": true, "scores": {"brand_visibility": 9, "message_clarity": 9,
		"cta_effectiveness": 9, "visual_appeal": 9}}`
	v := NewVisionValidator(mocks.NewMockProvider().WithResponse(reply), VisionValidatorConfig{}, nil)

	result, err := v.Validate(context.Background(), path, bannerRequest())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Issues, "missing score: overall_quality")
}

func TestVisionValidator_ClampsScores(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")
	reply := `{"scores": {"brand_visibility": 14, "message_clarity": -3,
		"cta_effectiveness": 7.4, "visual_appeal": 6.6, "overall_quality": 10}}`
	v := NewVisionValidator(mocks.NewMockProvider().WithResponse(reply), VisionValidatorConfig{}, nil)

	result, err := v.Validate(context.Background(), path, bannerRequest())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"brand_visibility":  10,
		"message_clarity":   1,
		"cta_effectiveness": 7,
		"visual_appeal":     7,
		"overall_quality":   10,
	}, result.Scores)
	assert.False(t, result.Passed)
}

func TestParseVerdict_OutOfRangeScoresClampBeforeRounding(t *testing.T) {
	reply := `{"scores": {"brand_visibility": 1e30, "message_clarity": -1e30,
		"cta_effectiveness": 9, "visual_appeal": 9, "overall_quality": 9}}`

	result, err := parseVerdict(reply, BannerDimensions)
	require.NoError(t, err)
	assert.Equal(t, MaxScore, result.Scores["brand_visibility"])
	assert.Equal(t, MinScore, result.Scores["message_clarity"])
	assert.False(t, result.Passed)

	result, err = parseVerdict(`{"scores": {"brand_visibility": 1e30, "message_clarity": 9,
		"cta_effectiveness": 9, "visual_appeal": 9, "overall_quality": 9}}`, BannerDimensions)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestVisionValidator_VideoIsManualReview(t *testing.T) {
	provider := mocks.NewMockProvider()
	v := NewVisionValidator(provider, VisionValidatorConfig{}, nil)

	for _, kind := range []types.Kind{types.KindVideo, types.KindImageToVideo} {
		result, err := v.Validate(context.Background(), "/nowhere/video.mp4", &types.GenerationRequest{Kind: kind})
		require.NoError(t, err)
		assert.True(t, result.Passed)
		assert.Equal(t, types.ValidationManualReview, result.Status)
		assert.Empty(t, result.Scores)
		assert.False(t, result.Automated())
	}
	assert.Equal(t, 0, provider.CallCount())
}

func TestVisionValidator_ProviderErrors(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")

	tests := []struct {
		name     string
		provider *mocks.MockProvider
		path     string
	}{
		{
			name: "non-retryable upstream error",
			provider: mocks.NewMockProvider().WithError(&llm.Error{
				Code: llm.ErrUnauthorized, Message: "bad key", Provider: "mock"}),
			path: path,
		},
		{
			name:     "unparseable reply",
			provider: mocks.NewMockProvider().WithResponse("I cannot score this image."),
			path:     path,
		},
		{
			name:     "reply without scores",
			provider: mocks.NewMockProvider().WithResponse(`{"passed": false}`),
			path:     path,
		},
		{
			name:     "missing artifact",
			provider: mocks.NewMockProvider().WithResponse(fixtures.PassingScores()),
			path:     filepath.Join(t.TempDir(), "gone.png"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVisionValidator(tt.provider, VisionValidatorConfig{}, nil)
			result, err := v.Validate(context.Background(), tt.path, bannerRequest())
			assert.Nil(t, result)
			testutil.AssertErrorCode(t, err, types.ErrValidationProvider)
		})
	}
}

func TestVisionValidator_RetriesTransientErrors(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")
	provider := mocks.NewMockProvider()
	calls := 0
	provider.WithCompletionFunc(func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		calls++
		if calls == 1 {
			return nil, &llm.Error{Code: llm.ErrUpstreamError, Message: "502", Retryable: true}
		}
		return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Content: fixtures.PassingScores()}}}}, nil
	})

	v := NewVisionValidator(provider, VisionValidatorConfig{MaxRetries: 1}, nil)
	result, err := v.Validate(context.Background(), path, bannerRequest())
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, calls)
}

func TestVisionValidator_Cancelled(t *testing.T) {
	path := fixtures.WriteBanner(t, testutil.OutputDir(t), "banner.png")
	v := NewVisionValidator(mocks.NewMockProvider().WithError(context.Canceled), VisionValidatorConfig{}, nil)

	_, err := v.Validate(testutil.CancelledContext(), path, bannerRequest())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRecommendations_FallsBackToLowScores(t *testing.T) {
	got := Recommendations(&types.ValidationResult{
		Scores: map[string]int{"brand_visibility": 5, "message_clarity": 9, "cta_effectiveness": 6},
	})
	lines := strings.Split(got, "\n")
	assert.Equal(t, []string{
		"- Improve brand visibility (scored 5/10)",
		"- Improve cta effectiveness (scored 6/10)",
	}, lines)
	assert.Empty(t, Recommendations(nil))
}
