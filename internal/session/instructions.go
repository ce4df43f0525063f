package session

import (
	"strings"
	"text/template"
)

// Agent names, one per instruction variant.
const (
	FileAgentName     = "rfp-expense-agent"
	EmbeddedAgentName = "rfp-expense-functions-agent"
)

const fileInstructions = `You are an RFP Expense Analyzer for Javista Services SAL.

You have access to two uploaded files via the Code Interpreter:
1. data.txt - RFP expense summary with consultant costs, hours, and project details
2. expense_policy.txt - Company expense policy with rate caps and approval thresholds

Your capabilities:
- Analyze RFP expense data using Python (Code Interpreter)
- Answer expense policy questions from the policy document
- Create text-based charts and visualizations
- Calculate statistics (averages, totals, standard deviations)
- Compare actual costs against policy rate caps
- Submit expense reports using submit_expense_report function
  (collect email, project name, description, and amount first)
- Flag budget overruns using flag_budget_overrun function
  (collect category, budgeted amount, actual amount, and reason first)

Always use Code Interpreter for calculations and charts.
Be concise. Reference specific policy rules when relevant.
`

var embeddedInstructions = template.Must(template.New("embedded").Parse(`You are an RFP Expense Analyzer for Javista Services SAL.

EXPENSE POLICY (reference this for policy questions):
{{.Policy}}

RFP DATA (reference this for data questions):
{{.Data}}

Your capabilities:
1. Answer questions about the RFP expense data
2. Answer questions about the expense policy
3. Compare actual costs against policy rate caps
4. Submit expense reports - collect email, project name, description, amount
   then use submit_expense_report function
5. Flag budget overruns - collect category, budgeted/actual amounts, reason
   then use flag_budget_overrun function

Be concise. Reference specific policy rules when relevant.
Show calculations clearly when doing math.
`))

// FileInstructions returns the instructions for an agent that reads both
// files through the code interpreter.
func FileInstructions() string {
	return fileInstructions
}

// EmbeddedInstructions returns the instructions with the policy and data
// text inlined.
func EmbeddedInstructions(res Resources) (string, error) {
	var b strings.Builder
	if err := embeddedInstructions.Execute(&b, res); err != nil {
		return "", err
	}
	return b.String(), nil
}
