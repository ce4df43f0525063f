// Package memory holds the ordered turns of one conversation and renders
// them as a role-tagged transcript.
//
// Model:
//   - Turns are text only (role + text + time). Tool calls are transient and
//     never appear here.
//   - A Log is append-only; insertion order is the only order.
package memory
