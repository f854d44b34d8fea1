package extraction

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/llm/tokenizer"
	"github.com/gpolydatas/marketing-generator/testutil"
	"github.com/gpolydatas/marketing-generator/testutil/fixtures"
	"github.com/gpolydatas/marketing-generator/testutil/mocks"
	"github.com/gpolydatas/marketing-generator/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newExtractor(t *testing.T, provider llm.Provider, dir string) *LLMExtractor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutputDir = dir
	cfg.MaxRetries = 0
	return NewLLMExtractor(provider, cfg, tokenizer.NewEstimator(), zaptest.NewLogger(t))
}

func TestExtract_BlackFridayBanner(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("```json\n" + fixtures.BlackFridayBannerExtraction() + "\n```")
	e := newExtractor(t, provider, testutil.OutputDir(t))

	req, err := e.Extract(testutil.TestContext(t), "Create a Black Friday banner for Nike, 50% off, Shop Now", nil)
	require.NoError(t, err)
	assert.Equal(t, types.KindBanner, req.Kind)
	assert.Equal(t, "Nike", req.Brand)
	assert.Equal(t, "Black Friday", req.Campaign)
	assert.Equal(t, "50% off", req.Message)
	assert.Equal(t, "Shop Now", req.CTA)
	assert.Equal(t, "social", req.BannerType)

	sent := provider.LastRequest()
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, llm.RoleSystem, sent.Messages[0].Role)
	assert.True(t, sent.JSONMode)
	assert.Contains(t, sent.Messages[1].Content, "Latest user message:\nCreate a Black Friday banner")
	assert.NotContains(t, sent.Messages[1].Content, "Conversation so far")
}

func TestExtract_BannerDefaults(t *testing.T) {
	reply := fixtures.ExtractionJSON(map[string]any{
		"kind": "banner", "confidence": 0.9, "brand": "Acme", "message": "New", "cta": "Buy", "banner_type": "billboard"})
	e := newExtractor(t, mocks.NewMockProvider().WithResponse(reply), t.TempDir())

	req, err := e.Extract(context.Background(), "banner for Acme", nil)
	require.NoError(t, err)
	assert.Equal(t, "social", req.BannerType)
}

func TestExtract_Ambiguous(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no kind", fixtures.ExtractionJSON(map[string]any{"kind": "", "confidence": 0.9})},
		{"low confidence", fixtures.ExtractionJSON(map[string]any{"kind": "banner", "confidence": 0.3,
			"brand": "A", "message": "B", "cta": "C"})},
		{"unknown kind", fixtures.ExtractionJSON(map[string]any{"kind": "podcast", "confidence": 0.9})},
		{"not json", "I think they want something nice."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExtractor(t, mocks.NewMockProvider().WithResponse(tt.reply), t.TempDir())
			_, err := e.Extract(context.Background(), "make me something for social", nil)
			testutil.AssertErrorCode(t, err, types.ErrAmbiguousIntent)
			assert.Equal(t, "Would you like a static banner image or a video?", Clarification(err))
		})
	}
}

func TestExtract_ProviderFailureIsAmbiguous(t *testing.T) {
	provider := mocks.NewMockProvider().WithError(&llm.Error{Code: llm.ErrUnauthorized, Message: "bad key"})
	e := newExtractor(t, provider, t.TempDir())

	_, err := e.Extract(context.Background(), "banner please", nil)
	testutil.AssertErrorCode(t, err, types.ErrAmbiguousIntent)
	var llmErr *llm.Error
	assert.ErrorAs(t, err, &llmErr)
}

func TestExtract_Cancelled(t *testing.T) {
	e := newExtractor(t, mocks.NewMockProvider().WithError(context.Canceled), t.TempDir())
	_, err := e.Extract(testutil.CancelledContext(), "banner please", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		reply map[string]any
		field string
	}{
		{"banner without cta", map[string]any{"kind": "banner", "confidence": 0.9, "brand": "Nike", "message": "50% off"}, "cta"},
		{"banner without brand", map[string]any{"kind": "banner", "confidence": 0.9, "message": "m", "cta": "c"}, "brand"},
		{"video without description", map[string]any{"kind": "video", "confidence": 0.9}, "description"},
		{"video with unknown duration", map[string]any{"kind": "video", "confidence": 0.9, "description": "x", "video_type": "epic"}, "video_type"},
		{"animate with nothing to animate", map[string]any{"kind": "image_to_video", "confidence": 0.9}, "source_image_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExtractor(t, mocks.NewMockProvider().WithResponse(fixtures.ExtractionJSON(tt.reply)), t.TempDir())
			_, err := e.Extract(context.Background(), "do it", nil)
			testutil.AssertErrorCode(t, err, types.ErrMissingRequiredField)
			e2, _ := types.AsError(err)
			assert.Equal(t, tt.field, e2.Field)
			assert.NotEmpty(t, Clarification(err))
		})
	}
}

func TestExtract_VideoDefaults(t *testing.T) {
	reply := fixtures.ExtractionJSON(map[string]any{
		"kind": "video", "confidence": 0.8, "brand": "AudioPro", "description": "headphones rotating", "model": "runway"})
	e := newExtractor(t, mocks.NewMockProvider().WithResponse(reply), t.TempDir())

	req, err := e.Extract(context.Background(), "a clip of our headphones", nil)
	require.NoError(t, err)
	assert.Equal(t, types.KindVideo, req.Kind)
	assert.Equal(t, "short", req.VideoType)
	assert.Equal(t, "720p", req.Resolution)
	assert.Equal(t, "16:9", req.AspectRatio)
	assert.Equal(t, "runway", req.VideoModel)
}

func TestExtract_AnimatePreviousBanner(t *testing.T) {
	dir := testutil.OutputDir(t)
	banner := fixtures.WriteBanner(t, dir, "banner_social_1792x1024_20241129_120000.png")
	snapshot := []types.ConversationTurn{
		types.NewUserTurn("Create a Black Friday banner for Nike, 50% off, Shop Now"),
		types.NewAgentTurn("Here is your banner", &types.ArtifactRef{Kind: types.KindBanner, Path: banner}),
	}
	provider := mocks.NewMockProvider().WithResponse(fixtures.AnimateExtraction())
	e := newExtractor(t, provider, dir)

	req, err := e.Extract(context.Background(), "Now animate it with a zoom effect", snapshot)
	require.NoError(t, err)
	assert.Equal(t, types.KindImageToVideo, req.Kind)
	assert.Equal(t, banner, req.SourceImagePath)
	assert.Equal(t, "zoom effect", req.Description)
	assert.Equal(t, "veo", req.VideoModel)

	content := provider.LastRequest().Messages[1].Content
	assert.Contains(t, content, "Conversation so far:\nuser: Create a Black Friday banner")
	assert.Contains(t, content, "[delivered banner: banner_social_1792x1024_20241129_120000.png]")
}

func TestExtract_ExplicitFilenameTurnsVideoIntoImageToVideo(t *testing.T) {
	dir := testutil.OutputDir(t)
	fixtures.WriteBanner(t, dir, "banner_square_1024x1024_20241201_090000.png")
	reply := fixtures.ExtractionJSON(map[string]any{"kind": "video", "confidence": 0.9, "description": ""})
	e := newExtractor(t, mocks.NewMockProvider().WithResponse(reply), dir)

	req, err := e.Extract(context.Background(), "animate banner_square_1024x1024_20241201_090000.png with runway", nil)
	require.NoError(t, err)
	assert.Equal(t, types.KindImageToVideo, req.Kind)
	assert.Equal(t, filepath.Join(dir, "banner_square_1024x1024_20241201_090000.png"), req.SourceImagePath)
	assert.Equal(t, DefaultAnimationDescription, req.Description)
	assert.Equal(t, "runway", req.VideoModel)
}

func TestExtract_ExplicitFilenameMustExist(t *testing.T) {
	e := newExtractor(t, mocks.NewMockProvider().WithResponse(fixtures.AnimateExtraction()), t.TempDir())
	_, err := e.Extract(context.Background(), "animate banner_gone.png", nil)
	testutil.AssertErrorCode(t, err, types.ErrMissingRequiredField)
}

func TestExtract_ContextTrimmedToBudget(t *testing.T) {
	var snapshot []types.ConversationTurn
	for i := 0; i < 6; i++ {
		snapshot = append(snapshot, types.NewUserTurn(strings.Repeat("word ", 40)+string(rune('A'+i))))
	}
	provider := mocks.NewMockProvider().WithResponse(fixtures.BlackFridayBannerExtraction())
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 120
	e := NewLLMExtractor(provider, cfg, tokenizer.NewEstimator(), nil)

	_, err := e.Extract(context.Background(), "banner", snapshot)
	require.NoError(t, err)
	content := provider.LastRequest().Messages[1].Content
	assert.Contains(t, content, "word F")
	assert.NotContains(t, content, "word A")
}

func TestExtract_EmptyText(t *testing.T) {
	provider := mocks.NewMockProvider()
	e := newExtractor(t, provider, t.TempDir())
	_, err := e.Extract(context.Background(), "   ", nil)
	testutil.AssertErrorCode(t, err, types.ErrAmbiguousIntent)
	assert.Equal(t, 0, provider.CallCount())
}

func TestDetectVideoModel(t *testing.T) {
	assert.Equal(t, "runway", DetectVideoModel("make it with RunwayML", ""))
	assert.Equal(t, "runway", DetectVideoModel("use gen-3 please", "veo"))
	assert.Equal(t, "veo", DetectVideoModel("google veo 3.1", "runway"))
	assert.Equal(t, "runway", DetectVideoModel("a video", "runway"))
	assert.Equal(t, "veo", DetectVideoModel("a video", ""))
}

func TestClarification_NonExtractionError(t *testing.T) {
	assert.Empty(t, Clarification(types.NewDownloadError("u", nil)))
	assert.Empty(t, Clarification(context.Canceled))
}
