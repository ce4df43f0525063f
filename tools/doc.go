// Package tools defines tool contracts and the local side-effect functions
// the hosted agent may call.
//
// Includes:
//   - ToolDefinition: name, description, JSON schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - submit_expense_report: writes expense-report-<8 hex>.txt.
//   - flag_budget_overrun: writes budget-alert-<6 hex>.txt.
//
// Artifact identifiers are truncated UUIDs. They are short on purpose and only
// unique with high probability.
package tools
