// Package runner executes the tool calls a hosting backend receives from the
// model and turns every outcome into a tool result for the backend to return.
//
// Invariant:
//   - every call yields exactly one Result carrying the call ID, even when the
//     tool is unknown, the arguments fail validation or the handler errors.
//
// Flow:
//
//	backend(tool call) -> Dispatcher.Exec -> validate -> handler -> Result -> backend
package runner
