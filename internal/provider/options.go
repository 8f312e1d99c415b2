// ABOUTME: Per-conversation provider options: explicit tagged structure and parse step
// ABOUTME: The options blob is stored opaquely and validated only at this boundary

package provider

import (
	"encoding/json"
	"fmt"
)

// Options are the per-conversation knobs for a completion request. They are
// stored as a serialized blob on the conversation and parsed here, so the
// store never interprets them.
type Options struct {
	Model        string   `json:"model,omitempty"`
	Temperature  *float32 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
}

// ParseOptions decodes a serialized options blob. An empty blob yields zero
// options. A malformed blob is a completion failure, not a storage one: the
// blob was stored fine, it just cannot drive a request.
func ParseOptions(blob string) (Options, error) {
	var opts Options
	if blob == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(blob), &opts); err != nil {
		return Options{}, &Error{Cause: fmt.Sprintf("invalid provider options: %v", err)}
	}
	return opts, nil
}
