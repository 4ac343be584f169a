// Package env implements the negotiation environment state machines: the
// single buyer/seller pair, the parallel and sequential multi-participant
// coordinators, and the orthogonal multi-product wrapper. All environments
// implement core.Episode and share the same lifecycle:
//
//	uninitialized -> ongoing -> {deal_reached, no_deal, buyer_rejected,
//	                             seller_rejected, truncated}
//
// Each Step call is one atomic state transition; a failed call leaves the
// episode exactly as it was. Environments consume already-produced action
// strings and never invoke agent inference themselves.
package env
