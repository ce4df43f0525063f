package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

type BudgetOverrunInput struct {
	Category       string  `json:"category" jsonschema_description:"Expense category that went over budget, e.g. travel."`
	BudgetedAmount float64 `json:"budgeted_amount" jsonschema:"minimum=0" jsonschema_description:"Amount budgeted for the category in dollars."`
	ActualAmount   float64 `json:"actual_amount" jsonschema:"minimum=0" jsonschema_description:"Amount actually spent in dollars."`
	Reason         string  `json:"reason" jsonschema_description:"Why the category went over budget."`
}

var BudgetOverrunInputSchema = GenerateSchema[BudgetOverrunInput]()

const budgetAlertIDLen = 6

// BudgetAlertDefinition binds flag_budget_overrun to e.
func (e *Env) BudgetAlertDefinition() ToolDefinition {
	return ToolDefinition{
		Name: "flag_budget_overrun",
		Description: `Flag a budget overrun for an expense category and create an alert file for management review.

Collect the category, budgeted amount, actual amount and reason from the user before calling.`,
		Schema: BudgetOverrunInputSchema,
		Function: func(input json.RawMessage) (string, error) {
			var in BudgetOverrunInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return e.FlagBudgetOverrun(in)
		},
	}
}

// Overrun returns actual-budgeted and that difference as a percentage of
// budgeted. The percentage is 0 when nothing was budgeted.
func Overrun(budgeted, actual float64) (amount, pct float64) {
	amount = actual - budgeted
	if budgeted != 0 {
		pct = amount / budgeted * 100
	}
	return amount, pct
}

// FlagBudgetOverrun writes budget-alert-<ID>.txt marked for MANAGEMENT REVIEW
// and returns the JSON confirmation.
func (e *Env) FlagBudgetOverrun(in BudgetOverrunInput) (string, error) {
	id := e.id(budgetAlertIDLen)
	fileName := fmt.Sprintf("budget-alert-%s.txt", id)
	overrun, pct := Overrun(in.BudgetedAmount, in.ActualAmount)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "BUDGET OVERRUN ALERT - %s\n", id)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Date:            %s\n", e.timestamp())
	fmt.Fprintf(&b, "Category:        %s\n", in.Category)
	fmt.Fprintf(&b, "Budgeted Amount: %s\n", Currency(in.BudgetedAmount))
	fmt.Fprintf(&b, "Actual Amount:   %s\n", Currency(in.ActualAmount))
	fmt.Fprintf(&b, "Overrun:         %s (%.1f%%)\n", Currency(overrun), pct)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Reason: %s\n", in.Reason)
	fmt.Fprintf(&b, "%s\n", rule)
	b.WriteString("Action Required: MANAGEMENT REVIEW\n")

	if _, err := e.Root.WriteFile(fileName, b.String()); err != nil {
		return "", fmt.Errorf("write %s: %w", fileName, err)
	}

	return confirmation(fmt.Sprintf(
		"Budget overrun alert %s created for %s. Overrun amount: %s (%.1f%%). Alert file saved as %s.",
		id, in.Category, Currency(overrun), pct, fileName,
	))
}
