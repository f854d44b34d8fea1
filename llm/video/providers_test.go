package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVeoProvider_SubmitAndPoll(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "veo-key", r.Header.Get("x-goog-api-key"))
		switch {
		case r.Method == http.MethodPost:
			assert.Equal(t, "/v1beta/models/veo-3.1-generate-preview:predictLongRunning", r.URL.Path)
			var body veoRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Instances, 1)
			require.NotNil(t, body.Instances[0].Image)
			assert.Equal(t, "QUJD", body.Instances[0].Image.BytesBase64Encoded)
			assert.Equal(t, "image/png", body.Instances[0].Image.MimeType)
			assert.Equal(t, 4, body.Parameters.DurationSeconds)
			assert.Equal(t, "16:9", body.Parameters.AspectRatio)
			assert.Equal(t, "720p", body.Parameters.Resolution)
			fmt.Fprint(w, `{"name":"models/veo-3.1-generate-preview/operations/op-7"}`)
		case r.URL.Path == "/v1beta/models/veo-3.1-generate-preview/operations/op-7":
			if polls.Add(1) < 2 {
				fmt.Fprint(w, `{"name":"op-7","done":false}`)
				return
			}
			fmt.Fprint(w, `{"name":"op-7","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files/v.mp4"}}]}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	p := NewVeoProvider(VeoConfig{APIKey: "veo-key", BaseURL: server.URL}, nil)
	job, err := p.Submit(context.Background(), &GenerateRequest{
		Prompt: "zoom", Model: "veo", DurationSeconds: 4, AspectRatio: "16:9", Resolution: "720p", Image: "QUJD",
	})
	require.NoError(t, err)
	assert.Equal(t, "models/veo-3.1-generate-preview/operations/op-7", job.ID)

	st, err := p.Poll(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, st.Done)

	st, err = p.Poll(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, st.Done)
	assert.Equal(t, "https://files/v.mp4", st.VideoURL)
	assert.Equal(t, map[string]string{"x-goog-api-key": "veo-key"}, p.DownloadHeaders())
}

func TestVeoProvider_OperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"op","done":true,"error":{"code":3,"message":"prompt blocked"}}`)
	}))
	t.Cleanup(server.Close)

	p := NewVeoProvider(VeoConfig{BaseURL: server.URL}, nil)
	_, err := p.Poll(context.Background(), &Job{ID: "op"})
	var failed *JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "prompt blocked", failed.Reason)
}

func TestVeoProvider_SubmitHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"quota per minute"}}`)
	}))
	t.Cleanup(server.Close)

	_, err := NewVeoProvider(VeoConfig{BaseURL: server.URL}, nil).Submit(context.Background(), &GenerateRequest{Prompt: "x"})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
}

func TestRunwayProvider_ImageToVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer rw-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-11-06", r.Header.Get("X-Runway-Version"))
		switch r.URL.Path {
		case "/v1/image_to_video":
			var body runwayRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gen4_turbo", body.Model)
			assert.Equal(t, "data:image/png;base64,QUJD", body.PromptImage)
			assert.Equal(t, "720:1280", body.Ratio)
			assert.Equal(t, 10, body.Duration)
			fmt.Fprint(w, `{"id":"task-9"}`)
		case "/v1/tasks/task-9":
			fmt.Fprint(w, `{"id":"task-9","status":"SUCCEEDED","output":["https://rw/out.mp4"]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	p := NewRunwayProvider(RunwayConfig{APIKey: "rw-key", BaseURL: server.URL}, nil)
	job, err := p.Submit(context.Background(), &GenerateRequest{
		Prompt: "pan", Model: "runway", DurationSeconds: 8, AspectRatio: "9:16", Image: "QUJD",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, job.DurationSeconds)

	st, err := p.Poll(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, st.Done)
	assert.Equal(t, "https://rw/out.mp4", st.VideoURL)
	assert.Nil(t, p.DownloadHeaders())
}

func TestRunwayProvider_TextToVideoAndFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/text_to_video":
			fmt.Fprint(w, `{"id":"task-1"}`)
		case "/v1/tasks/task-1":
			fmt.Fprint(w, `{"id":"task-1","status":"FAILED","failure":"moderation","failureCode":"SAFETY"}`)
		}
	}))
	t.Cleanup(server.Close)

	p := NewRunwayProvider(RunwayConfig{BaseURL: server.URL}, nil)
	job, err := p.Submit(context.Background(), &GenerateRequest{Prompt: "x", DurationSeconds: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, job.DurationSeconds)

	_, err = p.Poll(context.Background(), job)
	var failed *JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "moderation (SAFETY)", failed.Reason)
}

func TestRunwayRatio(t *testing.T) {
	assert.Equal(t, "1280:720", runwayRatio("16:9"))
	assert.Equal(t, "1280:720", runwayRatio(""))
	assert.Equal(t, "720:1280", runwayRatio("9:16"))
	assert.Equal(t, "960:960", runwayRatio("1:1"))
}
