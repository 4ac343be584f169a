// Package core defines the shared vocabulary of the negotiation engine:
// turns and the per-episode conversation log, products, negotiation state,
// outcomes, episode configuration and the Episode interface every
// environment composition implements. It also declares the collaborator
// contracts the engine consumes but never implements itself (Responder,
// PriceExtractor, RejectionClassifier).
//
// Everything in this package is synchronous. An episode object is owned by a
// single logical thread of control for its lifetime; "parallel" scheduling
// refers to folding all participants' actions into the same round, not to
// concurrent execution.
package core
