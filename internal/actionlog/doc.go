// Package actionlog records dispatched actions in an append-only SQLite log
// and replays them into a fresh store.
//
// # Critical Patterns
//
// Logical Time:
//   - Every record carries a strictly increasing seq, never a timestamp
//   - A Recorder resumes from the highest seq already logged, so several
//     sessions writing the same file still form one total order
//
// Deterministic Reads:
//   - Records are always read with ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Content-Addressed Identity:
//   - Record IDs come from ir.ActionID over session, seq, type, and payload
//   - Each record stores ir.StateHash of the state after its action, which
//     Replay uses to detect divergence
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package actionlog
