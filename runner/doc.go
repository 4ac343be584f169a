// Package runner drives episodes to completion. The engine itself only
// consumes action text; the Runner is the caller-side loop that asks each
// active participant's Responder for its next utterance, feeds the collected
// actions into Episode.Step and repeats until the episode terminates.
//
// Responder invocation per round is either sequential or fanned out with one
// goroutine per active slot (Concurrent option). Finished episodes can be
// persisted to a transcript.Store.
package runner
