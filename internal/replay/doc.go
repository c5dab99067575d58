// Package replay remembers which credential payloads have already been
// exchanged for a session.
//
// A payload is keyed by its hash field and recorded with SET NX for the
// staleness window; a second presentation inside that window is a replay.
// The guard sits beside the verifier, not inside it, so verification stays
// a pure function. Not importable outside the miniauth module.
package replay
