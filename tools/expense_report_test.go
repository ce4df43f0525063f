package tools_test

import (
	"encoding/json"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/petasbytes/expense-agent/tools"
)

var reportName = regexp.MustCompile(`^expense-report-[0-9A-F]{8}\.txt$`)

func TestSubmitExpenseReport_WritesFixedLayout(t *testing.T) {
	env := newEnv(t)
	env.NewID = func(n int) string { return "0A1B2C3D"[:n] }

	out, err := env.SubmitExpenseReport(tools.ExpenseReportInput{
		EmailAddress: "ana@example.com",
		ProjectName:  "RFP-2025-Alpha",
		Description:  "Consultant travel to client site",
		TotalAmount:  1234567.891,
	})
	require.NoError(t, err)

	want := "==================================================\n" +
		"EXPENSE REPORT - 0A1B2C3D\n" +
		"==================================================\n" +
		"Date:        2025-03-14 09:26:53\n" +
		"Submitted by: ana@example.com\n" +
		"Project:     RFP-2025-Alpha\n" +
		"Amount:      $1,234,567.89\n" +
		"==================================================\n" +
		"Description:\nConsultant travel to client site\n" +
		"==================================================\n" +
		"Status: PENDING APPROVAL\n"
	assert.Equal(t, want, readArtifact(t, env, "expense-report-0A1B2C3D.txt"))

	msg := gjson.Get(out, "message")
	require.True(t, msg.Exists(), "confirmation must carry a message field: %s", out)
	assert.Equal(t,
		"Expense report 0A1B2C3D submitted successfully. The report file is saved as expense-report-0A1B2C3D.txt. Total amount: $1,234,567.89.",
		msg.String())
}

func TestSubmitExpenseReport_FileNameAndAmountFormat(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{12.5, "$12.50"},
		{999.999, "$1,000.00"},
		{1500, "$1,500.00"},
		{42000.25, "$42,000.25"},
	}
	for _, tc := range cases {
		env := newEnv(t)
		_, err := env.SubmitExpenseReport(tools.ExpenseReportInput{
			EmailAddress: "a@b.c", ProjectName: "p", Description: "d", TotalAmount: tc.amount,
		})
		require.NoError(t, err)

		names := listArtifacts(t, env, "expense-report-*.txt")
		require.Len(t, names, 1)
		assert.Regexp(t, reportName, names[0])
		assert.Contains(t, readArtifact(t, env, names[0]), "Amount:      "+tc.want+"\n")
	}
}

func TestSubmitExpenseReport_IdentifiersDoNotCollide(t *testing.T) {
	env := newEnv(t)
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		out, err := env.SubmitExpenseReport(tools.ExpenseReportInput{
			EmailAddress: "a@b.c", ProjectName: "p", Description: "d", TotalAmount: 1,
		})
		require.NoError(t, err)
		id := regexp.MustCompile(`Expense report ([0-9A-F]{8}) `).FindStringSubmatch(gjson.Get(out, "message").String())
		require.Len(t, id, 2)
		if _, dup := seen[id[1]]; dup {
			t.Fatalf("identifier %s reused after %d calls", id[1], i)
		}
		seen[id[1]] = struct{}{}
	}
	assert.Len(t, listArtifacts(t, env, "expense-report-*.txt"), 1000)
}

func TestExpenseReportDefinition_DecodesJSON(t *testing.T) {
	env := newEnv(t)
	def := env.ExpenseReportDefinition()

	b, _ := json.Marshal(map[string]any{
		"email_address": "x@y.z", "project_name": "Beta", "description": "Hotel", "total_amount": 310.4,
	})
	out, err := def.Function(b)
	require.NoError(t, err)
	assert.Contains(t, gjson.Get(out, "message").String(), "Total amount: $310.40.")

	_, err = def.Function(json.RawMessage(`{oops`))
	assert.Error(t, err)
}

func TestSubmitExpenseReport_WriteFailurePropagates(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, os.RemoveAll(env.Root.Dir()))
	// A regular file where the root directory used to be makes every write fail.
	require.NoError(t, os.WriteFile(env.Root.Dir(), []byte("x"), 0o644))

	_, err := env.SubmitExpenseReport(tools.ExpenseReportInput{TotalAmount: 1})
	assert.Error(t, err)
}
