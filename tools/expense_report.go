package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ExpenseReportInput struct {
	EmailAddress string  `json:"email_address" jsonschema_description:"Email address of the person submitting the report."`
	ProjectName  string  `json:"project_name" jsonschema_description:"Name of the project the expense belongs to."`
	Description  string  `json:"description" jsonschema_description:"What the expense covers."`
	TotalAmount  float64 `json:"total_amount" jsonschema:"minimum=0" jsonschema_description:"Total amount of the expense in dollars."`
}

var ExpenseReportInputSchema = GenerateSchema[ExpenseReportInput]()

const expenseReportIDLen = 8

// ExpenseReportDefinition binds submit_expense_report to e.
func (e *Env) ExpenseReportDefinition() ToolDefinition {
	return ToolDefinition{
		Name: "submit_expense_report",
		Description: `Generate an expense report file and return a confirmation message.

Collect the email address, project name, description and total amount from the user before calling.`,
		Schema: ExpenseReportInputSchema,
		Function: func(input json.RawMessage) (string, error) {
			var in ExpenseReportInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return e.SubmitExpenseReport(in)
		},
	}
}

// SubmitExpenseReport writes expense-report-<ID>.txt with status
// PENDING APPROVAL and returns the JSON confirmation.
func (e *Env) SubmitExpenseReport(in ExpenseReportInput) (string, error) {
	id := e.id(expenseReportIDLen)
	fileName := fmt.Sprintf("expense-report-%s.txt", id)
	amount := Currency(in.TotalAmount)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "EXPENSE REPORT - %s\n", id)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Date:        %s\n", e.timestamp())
	fmt.Fprintf(&b, "Submitted by: %s\n", in.EmailAddress)
	fmt.Fprintf(&b, "Project:     %s\n", in.ProjectName)
	fmt.Fprintf(&b, "Amount:      %s\n", amount)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Description:\n%s\n", in.Description)
	fmt.Fprintf(&b, "%s\n", rule)
	b.WriteString("Status: PENDING APPROVAL\n")

	if _, err := e.Root.WriteFile(fileName, b.String()); err != nil {
		return "", fmt.Errorf("write %s: %w", fileName, err)
	}

	return confirmation(fmt.Sprintf(
		"Expense report %s submitted successfully. The report file is saved as %s. Total amount: %s.",
		id, fileName, amount,
	))
}
