// Package ir provides the canonical data representation used wherever
// actions or states leave the process: the action log, golden traces, and
// CLI output.
//
// Key design constraints:
//   - Values normalize to a closed set: nil, bool, string, int64, []any, map[string]any
//   - NO float types anywhere - floats break byte-identical replay
//   - Canonical JSON follows RFC 8785 (UTF-16 key order, NFC strings, no HTML escaping)
//   - Content hashes use SHA-256 with domain separation
package ir
