package tools

// Registry returns the local functions registered with the agent.
func Registry(e *Env) []ToolDefinition {
	return []ToolDefinition{e.ExpenseReportDefinition(), e.BudgetAlertDefinition()}
}
