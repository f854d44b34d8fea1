package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/llm/image"
	"github.com/gpolydatas/marketing-generator/llm/video"
	"github.com/gpolydatas/marketing-generator/testutil"
	"github.com/gpolydatas/marketing-generator/testutil/fixtures"
	"github.com/gpolydatas/marketing-generator/testutil/mocks"
	"github.com/gpolydatas/marketing-generator/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = func() time.Time { return time.Date(2024, 11, 29, 12, 0, 0, 0, time.UTC) }

func newStore(t *testing.T) *persistence.FileStore {
	t.Helper()
	s, err := persistence.NewFileStore(testutil.OutputDir(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func fastDownloader(t *testing.T) *Downloader {
	return NewDownloader(DownloaderConfig{Timeout: 5 * time.Second, MaxRetries: 1, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
}

func fastPoller() *video.Poller {
	return video.NewPoller(video.PollerConfig{Interval: time.Millisecond, Deadline: 2 * time.Second}, nil)
}

func blackFriday() *types.GenerationRequest {
	return &types.GenerationRequest{
		Kind:       types.KindBanner,
		Campaign:   "Black Friday",
		Brand:      "TechStore",
		Message:    "50% off everything",
		CTA:        "Shop Now",
		BannerType: "social",
	}
}

// ---------------------------------------------------------------------------
// specs & prompts
// ---------------------------------------------------------------------------

func TestBannerSpecs(t *testing.T) {
	tests := []struct {
		name, dims, providerSize string
	}{
		{"social", "1200x628", image.SizeWide},
		{"leaderboard", "728x90", image.SizeWide},
		{"square", "1024x1024", image.SizeSquare},
	}
	for _, tt := range tests {
		spec, ok := LookupBanner(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.dims, spec.Dimensions())
		assert.Equal(t, tt.providerSize, spec.ProviderSize())
	}
	assert.Equal(t, image.SizeTall, BannerSpec{Width: 600, Height: 1200}.ProviderSize())
	assert.Len(t, BannerTypes(), 3)
	assert.Equal(t, "leaderboard", BannerTypes()[0].Name)
}

func TestVideoSpecs(t *testing.T) {
	for name, want := range map[string]int{"short": 4, "standard": 6, "extended": 8} {
		spec, ok := LookupVideo(name)
		require.True(t, ok)
		assert.Equal(t, want, spec.DurationSeconds)
	}
	_, ok := LookupVideo("epic")
	assert.False(t, ok)
}

func TestBannerPrompt(t *testing.T) {
	spec, _ := LookupBanner("social")
	p := BannerPrompt(blackFriday(), spec)
	assert.Contains(t, p, `"TechStore"`)
	assert.Contains(t, p, "1200x628")
	assert.NotContains(t, p, "IMPROVEMENTS FOR THIS ATTEMPT")

	p = BannerPrompt(blackFriday().WithAdditionalInstructions("- Make the brand larger"), spec)
	assert.Contains(t, p, "IMPROVEMENTS FOR THIS ATTEMPT:\n- Make the brand larger")
	assert.Contains(t, p, "REMINDER:")
}

func TestVideoPrompt(t *testing.T) {
	spec, _ := LookupVideo("short")
	req := &types.GenerationRequest{Kind: types.KindImageToVideo, Description: "slow zoom", Resolution: "720p", AspectRatio: "16:9"}
	p := VideoPrompt(req, spec)
	assert.True(t, strings.HasPrefix(p, "Animate this banner"))
	assert.Contains(t, p, "slow zoom")
	assert.Contains(t, p, "Duration: 4 seconds")
}

// ---------------------------------------------------------------------------
// Router
// ---------------------------------------------------------------------------

type stubGenerator struct{ called types.Kind }

func (s *stubGenerator) Generate(_ context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	s.called = req.Kind
	return &types.GenerationResult{}, nil
}

func TestRouter_Dispatch(t *testing.T) {
	img, vid := &stubGenerator{}, &stubGenerator{}
	r := NewRouter(img, vid)
	ctx := context.Background()

	_, err := r.Generate(ctx, &types.GenerationRequest{Kind: types.KindBanner})
	require.NoError(t, err)
	assert.Equal(t, types.KindBanner, img.called)

	_, err = r.Generate(ctx, &types.GenerationRequest{Kind: types.KindImageToVideo})
	require.NoError(t, err)
	assert.Equal(t, types.KindImageToVideo, vid.called)

	_, err = r.Generate(ctx, &types.GenerationRequest{Kind: "podcast"})
	testutil.AssertErrorCode(t, err, types.ErrInvalidRequest)

	_, err = NewRouter(img, nil).Generate(ctx, &types.GenerationRequest{Kind: types.KindVideo})
	testutil.AssertErrorCode(t, err, types.ErrServiceUnavailable)
}

// ---------------------------------------------------------------------------
// ImageGenerator
// ---------------------------------------------------------------------------

func TestImageGenerator_DownloadsURL(t *testing.T) {
	assets := testutil.NewAssetServer(t, map[string][]byte{"/img.png": fixtures.PNG(8, 8)})
	provider := mocks.NewImageProvider(assets.URLFor("/img.png"))
	store := newStore(t)

	g := NewImageGenerator(provider, store, fastDownloader(t), DefaultImageGeneratorConfig(), zaptest.NewLogger(t))
	g.now = fixedNow

	res, err := g.Generate(testutil.TestContext(t), blackFriday())
	require.NoError(t, err)

	assert.Equal(t, "banner_social_1792x1024_20241129_120000.png", res.Filename)
	assert.Equal(t, image.SizeWide, res.Size)
	assert.Equal(t, "revised prompt", res.ProviderMetadata["revised_prompt"])
	assert.Equal(t, "dall-e-3", res.ProviderMetadata["model"])
	assert.FileExists(t, res.ArtifactPath)
	assert.Positive(t, res.Bytes)

	call := provider.Calls()[0]
	assert.Equal(t, "hd", call.Quality)
	assert.Equal(t, "vivid", call.Style)
	assert.Equal(t, image.SizeWide, call.Size)
	assert.LessOrEqual(t, len([]rune(call.Prompt)), image.MaxPromptLength)
	testutil.AssertFileCount(t, store.Dir(), "*.png", 1)
}

func TestImageGenerator_DecodesB64(t *testing.T) {
	png := fixtures.PNG(4, 4)
	provider := mocks.NewImageProvider("").WithB64(base64.StdEncoding.EncodeToString(png))
	g := NewImageGenerator(provider, newStore(t), nil, ImageGeneratorConfig{}, nil)

	res, err := g.Generate(context.Background(), blackFriday())
	require.NoError(t, err)
	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestImageGenerator_ProviderError(t *testing.T) {
	provider := mocks.NewImageProvider("https://unused").WithErrors(&llm.Error{
		Code: llm.ErrRateLimited, Message: "slow down", Retryable: true, Provider: "dalle"})
	store := newStore(t)
	g := NewImageGenerator(provider, store, nil, ImageGeneratorConfig{}, nil)

	_, err := g.Generate(context.Background(), blackFriday())
	testutil.AssertErrorCode(t, err, types.ErrGenerationProvider)
	e, _ := types.AsError(err)
	assert.Equal(t, "dalle", e.Provider)
	testutil.AssertFileCount(t, store.Dir(), "*", 0)
}

func TestImageGenerator_DownloadError(t *testing.T) {
	assets := testutil.NewAssetServer(t, nil)
	provider := mocks.NewImageProvider(assets.URLFor("/missing.png?sig=secret"))
	store := newStore(t)
	g := NewImageGenerator(provider, store, fastDownloader(t), ImageGeneratorConfig{}, nil)

	_, err := g.Generate(context.Background(), blackFriday())
	testutil.AssertErrorCode(t, err, types.ErrDownloadFailed)
	assert.NotContains(t, err.Error(), "secret")
	// 404 不重试
	assert.Equal(t, 1, assets.Hits())
	testutil.AssertFileCount(t, store.Dir(), "*", 0)
}

func TestImageGenerator_UnknownBannerType(t *testing.T) {
	req := blackFriday()
	req.BannerType = "billboard"
	g := NewImageGenerator(mocks.NewImageProvider(""), newStore(t), nil, ImageGeneratorConfig{}, nil)
	_, err := g.Generate(context.Background(), req)
	testutil.AssertErrorCode(t, err, types.ErrInvalidRequest)
}

// ---------------------------------------------------------------------------
// VideoGenerator
// ---------------------------------------------------------------------------

func TestVideoGenerator_ImageToVideo(t *testing.T) {
	assets := testutil.NewAssetServer(t, map[string][]byte{"/v.mp4": []byte("mp4-bytes")})
	veo := mocks.NewVideoProvider(video.BackendVeo, assets.URLFor("/v.mp4"), 3)
	store := newStore(t)
	source := fixtures.WriteBanner(t, store.Dir(), "banner_social_1792x1024_20241129_120000.png")

	g := NewVideoGenerator([]video.Provider{veo}, video.BackendVeo, fastPoller(), store, fastDownloader(t), zaptest.NewLogger(t))
	g.now = fixedNow

	res, err := g.Generate(testutil.TestContext(t), &types.GenerationRequest{
		Kind:            types.KindImageToVideo,
		Description:     "zoom effect",
		VideoType:       "short",
		SourceImagePath: source,
	})
	require.NoError(t, err)

	assert.Equal(t, "video_short_4s_image_20241129_120000.mp4", res.Filename)
	assert.Equal(t, 4, res.DurationSeconds)
	assert.Equal(t, "3", res.ProviderMetadata["polls"])
	assert.Equal(t, filepath.Base(source), res.ProviderMetadata["source_image"])

	sub := veo.Submits()[0]
	assert.True(t, sub.HasImage())
	assert.Equal(t, "image/png", sub.ImageMediaType)
	assert.Equal(t, DefaultResolution, sub.Resolution)
	assert.Equal(t, DefaultAspectRatio, sub.AspectRatio)
	assert.Equal(t, 4, sub.DurationSeconds)
}

func TestVideoGenerator_SelectsBackend(t *testing.T) {
	assets := testutil.NewAssetServer(t, map[string][]byte{"/v.mp4": []byte("x")})
	veo := mocks.NewVideoProvider(video.BackendVeo, assets.URLFor("/v.mp4"), 1)
	runway := mocks.NewVideoProvider(video.BackendRunway, assets.URLFor("/v.mp4"), 1)
	g := NewVideoGenerator([]video.Provider{veo, runway}, "", fastPoller(), newStore(t), fastDownloader(t), nil)
	assert.Equal(t, []string{"runway", "veo"}, g.Backends())

	res, err := g.Generate(context.Background(), &types.GenerationRequest{
		Kind: types.KindVideo, Description: "headphones rotating", VideoType: "standard", VideoModel: "Runway"})
	require.NoError(t, err)
	assert.Equal(t, "runway", res.ProviderMetadata["provider"])
	assert.Contains(t, res.Filename, "video_standard_6s_text_")
	assert.Len(t, runway.Submits(), 1)
	assert.Empty(t, veo.Submits())
}

func TestVideoGenerator_Errors(t *testing.T) {
	store := newStore(t)

	t.Run("missing source image", func(t *testing.T) {
		g := NewVideoGenerator([]video.Provider{mocks.NewVideoProvider("veo", "", 1)}, "veo", fastPoller(), store, nil, nil)
		_, err := g.Generate(context.Background(), &types.GenerationRequest{
			Kind: types.KindImageToVideo, Description: "zoom", SourceImagePath: filepath.Join(store.Dir(), "gone.png")})
		testutil.AssertErrorCode(t, err, types.ErrMissingRequiredField)
	})

	t.Run("job failed", func(t *testing.T) {
		p := mocks.NewVideoProvider("veo", "", 2).WithFailure("RAI filtered")
		g := NewVideoGenerator([]video.Provider{p}, "veo", fastPoller(), store, nil, nil)
		_, err := g.Generate(context.Background(), &types.GenerationRequest{Kind: types.KindVideo, Description: "x"})
		testutil.AssertErrorCode(t, err, types.ErrGenerationProvider)
		var jf *video.JobFailedError
		assert.True(t, errors.As(err, &jf))
	})

	t.Run("deadline", func(t *testing.T) {
		p := mocks.NewVideoProvider("veo", "", 1).WithNeverDone()
		poller := video.NewPoller(video.PollerConfig{Interval: time.Millisecond, Deadline: 20 * time.Millisecond}, nil)
		g := NewVideoGenerator([]video.Provider{p}, "veo", poller, store, nil, nil)
		_, err := g.Generate(context.Background(), &types.GenerationRequest{Kind: types.KindVideo, Description: "x"})
		testutil.AssertErrorCode(t, err, types.ErrGenerationTimeout)
	})

	t.Run("caller cancel", func(t *testing.T) {
		p := mocks.NewVideoProvider("veo", "", 1).WithNeverDone()
		g := NewVideoGenerator([]video.Provider{p}, "veo", fastPoller(), store, nil, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := g.Generate(ctx, &types.GenerationRequest{Kind: types.KindVideo, Description: "x"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, types.IsCode(err, types.ErrGenerationTimeout))
	})

	t.Run("no providers", func(t *testing.T) {
		g := NewVideoGenerator(nil, "veo", fastPoller(), store, nil, nil)
		_, err := g.Generate(context.Background(), &types.GenerationRequest{Kind: types.KindVideo, Description: "x"})
		testutil.AssertErrorCode(t, err, types.ErrServiceUnavailable)
	})

	testutil.AssertFileCount(t, store.Dir(), "*.mp4", 0)
}
