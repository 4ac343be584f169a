// Package transcript persists finished episode records. The in-memory store
// is process local and safe for concurrent access; records are cloned on the
// way in and out so callers cannot mutate stored state.
package transcript
