// Package api defines the request and response types of the
// marketing-generator HTTP API.
//
// # API Overview
//
//   - POST /v1/generate          one conversational turn (session_id + text)
//   - POST /v1/generate/banner   structured banner request
//   - POST /v1/generate/video    structured video or image-to-video request
//   - GET  /v1/outputs           generated artifacts, newest first
//   - GET  /v1/files/{name}      artifact download
//   - GET  /v1/sessions/{id}     conversation snapshot
//   - GET  /v1/admin/stats       per-user usage (premium tier)
//
// # Authentication
//
// Endpoints under /v1 require the X-API-Key header, or a bearer token
// when JWT auth is enabled:
//
//	X-API-Key: your-api-key
//
// Every response uses the handlers.Response envelope.
package api
