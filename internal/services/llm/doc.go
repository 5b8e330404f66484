// Package llm writes ad captions through an OpenRouter-compatible chat
// completion API.
//
// The client sends the caption system prompt plus a user message built from
// the style, garment category, free-form request, keywords, and required
// phrases. The model must answer with a JSON object holding the caption and a
// confidence in [0,1]; the payload is checked against a JSON schema before it
// is decoded.
//
// # Entry Points
//
// NewClient / NewFromConfig: construct a client.
// Client.WriteCaption: caption text for the generate_caption stage.
// Client.GenerateCaption: caption plus confidence and raw payload.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// Requests are retried on 408/429/5xx, network timeouts, and empty replies
// with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Retry-After is honoured up to the max delay. This is transport-level only;
// a caption that still fails fails its pipeline stage.
package llm
