package providers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/stretchr/testify/assert"
)

func TestMapHTTPError(t *testing.T) {
	testCases := []struct {
		name          string
		status        int
		msg           string
		expectedCode  llm.ErrorCode
		expectedRetry bool
	}{
		{"401 unauthorized", http.StatusUnauthorized, "Invalid API key", llm.ErrUnauthorized, false},
		{"403 forbidden", http.StatusForbidden, "denied", llm.ErrForbidden, false},
		{"429 rate limited", http.StatusTooManyRequests, "slow down", llm.ErrRateLimited, true},
		{"400 quota", http.StatusBadRequest, "You exceeded your current quota", llm.ErrQuotaExceeded, false},
		{"400 billing", http.StatusBadRequest, "Billing hard limit reached", llm.ErrQuotaExceeded, false},
		{"400 content policy", http.StatusBadRequest, "rejected by content_policy_violation", llm.ErrContentFiltered, false},
		{"400 invalid", http.StatusBadRequest, "size must be one of", llm.ErrInvalidRequest, false},
		{"504 timeout", http.StatusGatewayTimeout, "timeout", llm.ErrUpstreamTimeout, true},
		{"502 bad gateway", http.StatusBadGateway, "bad gateway", llm.ErrUpstreamError, true},
		{"503 unavailable", http.StatusServiceUnavailable, "down", llm.ErrUpstreamError, true},
		{"529 overloaded", 529, "overloaded", llm.ErrModelOverloaded, true},
		{"500 internal", http.StatusInternalServerError, "oops", llm.ErrUpstreamError, true},
		{"418 teapot", http.StatusTeapot, "teapot", llm.ErrUpstreamError, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := MapHTTPError(tc.status, tc.msg, "dalle")
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.Equal(t, tc.expectedRetry, err.Retryable)
			assert.Equal(t, tc.status, err.HTTPStatus)
			assert.Equal(t, "dalle", err.Provider)
			assert.Equal(t, tc.msg, err.Message)
		})
	}
}

func TestTransportError(t *testing.T) {
	err := TransportError(errors.New("connection reset"), "veo")
	assert.Equal(t, llm.ErrUpstreamError, err.Code)
	assert.True(t, err.Retryable)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

func TestReadErrorMessage(t *testing.T) {
	assert.Equal(t, "bad prompt (type: invalid_request_error)",
		ReadErrorMessage(strings.NewReader(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`)))
	assert.Equal(t, "bad prompt",
		ReadErrorMessage(strings.NewReader(`{"error":{"message":"bad prompt"}}`)))
	assert.Equal(t, "plain text failure",
		ReadErrorMessage(strings.NewReader("plain text failure")))
}

func TestConvertMessagesToOpenAI(t *testing.T) {
	msgs := ConvertMessagesToOpenAI([]llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "look", Images: []llm.ImageContent{
			{Type: "url", URL: "https://cdn.example/banner.png"},
			{Type: "base64", Data: "QUJD", MediaType: "image/jpeg"},
		}},
	})

	assert.Len(t, msgs, 2)
	assert.Equal(t, "rules", msgs[0].Content)

	parts, ok := msgs[1].Content.([]OpenAICompatContentPart)
	if assert.True(t, ok) && assert.Len(t, parts, 3) {
		assert.Equal(t, "https://cdn.example/banner.png", parts[0].ImageURL.URL)
		assert.Equal(t, "data:image/jpeg;base64,QUJD", parts[1].ImageURL.URL)
		assert.Equal(t, OpenAICompatContentPart{Type: "text", Text: "look"}, parts[2])
	}
}

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req", ChooseModel(&llm.ChatRequest{Model: "req"}, "def", "fb"))
	assert.Equal(t, "def", ChooseModel(&llm.ChatRequest{}, "def", "fb"))
	assert.Equal(t, "fb", ChooseModel(nil, "", "fb"))
}
