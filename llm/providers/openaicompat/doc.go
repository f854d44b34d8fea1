// Package openaicompat provides the chat completion client used for intent
// extraction and vision validation.
//
// Any endpoint that speaks the OpenAI Chat Completions format works. Images
// attached to a message are sent as image_url content parts with base64 data
// URLs.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "openai",
//	    APIKey:       cfg.Validator.APIKey,
//	    BaseURL:      cfg.Validator.BaseURL,
//	    DefaultModel: "gpt-4o",
//	}, logger)
package openaicompat
