// Package agent provides ready-made implementations of the core.Responder
// collaborator contract: scripted responders for tests and examples,
// deterministic linear-concession negotiators, and model-backed responders
// that prompt an LLM with the conversation so far. The engine itself never
// calls a responder; the runner (or any other caller) does, once per
// participant per round.
package agent
