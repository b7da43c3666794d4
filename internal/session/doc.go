// Package session keeps per-user analysis state in memory.
//
// A Session holds the uploaded inputs, a forecast engine and a memo of
// derived results keyed by BLAKE2b digests of their inputs. Replacing any
// input bumps the revision, clears the memo and returns the forecast to
// idle. Store hands out sessions by UUID and expires idle ones after the
// configured TTL.
package session
