// Package planner generates structured workflow plans from natural-language
// briefs using an OpenRouter-compatible chat completion API. Responses are
// requested as JSON and decoded defensively since models wrap payloads in
// code fences or prose more often than they should.
package planner
