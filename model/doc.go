// Package model defines the provider-neutral chat interface negotiation
// responders use to drive generation, plus a deterministic MockModel for
// tests and examples. Provider adapters live in the openai and anthropic
// subpackages. Negotiation actions are plain text, so the interface is a
// single-shot completion without tool calling.
package model
