// Package provider is the completion-client boundary to external
// language-model services.
//
// A Client performs one single-shot completion per call: the provider may
// stream internally, but this boundary returns the fully assembled text or
// fails with the opaque *Error. No retry happens here.
//
// Per-conversation options travel as an opaque serialized blob everywhere
// else in the system and are parsed only at this boundary (ParseOptions); a
// malformed blob is a completion failure, not a storage one.
//
// OpenAI implements Client against any OpenAI-compatible endpoint using the
// conversation's model config for credentials and base URL. Mock implements
// Client for tests.
package provider
