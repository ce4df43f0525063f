package tools_test

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/petasbytes/expense-agent/tools"
)

var alertName = regexp.MustCompile(`^budget-alert-[0-9A-F]{6}\.txt$`)

func TestFlagBudgetOverrun_Scenario(t *testing.T) {
	env := newEnv(t)
	env.NewID = func(n int) string { return "ABC123"[:n] }

	out, err := env.FlagBudgetOverrun(tools.BudgetOverrunInput{
		Category:       "travel",
		BudgetedAmount: 1000.0,
		ActualAmount:   1250.0,
		Reason:         "Extra client visits",
	})
	require.NoError(t, err)

	want := "==================================================\n" +
		"BUDGET OVERRUN ALERT - ABC123\n" +
		"==================================================\n" +
		"Date:            2025-03-14 09:26:53\n" +
		"Category:        travel\n" +
		"Budgeted Amount: $1,000.00\n" +
		"Actual Amount:   $1,250.00\n" +
		"Overrun:         $250.00 (25.0%)\n" +
		"==================================================\n" +
		"Reason: Extra client visits\n" +
		"==================================================\n" +
		"Action Required: MANAGEMENT REVIEW\n"
	assert.Equal(t, want, readArtifact(t, env, "budget-alert-ABC123.txt"))
	assert.Equal(t,
		"Budget overrun alert ABC123 created for travel. Overrun amount: $250.00 (25.0%). Alert file saved as budget-alert-ABC123.txt.",
		gjson.Get(out, "message").String())
}

func TestFlagBudgetOverrun_ZeroBudget(t *testing.T) {
	env := newEnv(t)
	out, err := env.FlagBudgetOverrun(tools.BudgetOverrunInput{
		Category: "software", BudgetedAmount: 0, ActualAmount: 480, Reason: "unplanned licence",
	})
	require.NoError(t, err)

	names := listArtifacts(t, env, "budget-alert-*.txt")
	require.Len(t, names, 1)
	assert.Regexp(t, alertName, names[0])
	assert.Contains(t, readArtifact(t, env, names[0]), "Overrun:         $480.00 (0.0%)\n")
	assert.Contains(t, gjson.Get(out, "message").String(), "Overrun amount: $480.00 (0.0%)")
}

func TestOverrun_Percentage(t *testing.T) {
	cases := []struct {
		budgeted, actual float64
		amount, pct      float64
	}{
		{1000, 1250, 250, 25},
		{0, 100, 100, 0},
		{0, 0, 0, 0},
		{400, 300, -100, -25},
		{3, 4, 1, 100.0 / 3},
	}
	for _, tc := range cases {
		amount, pct := tools.Overrun(tc.budgeted, tc.actual)
		if amount != tc.amount {
			t.Errorf("Overrun(%v, %v) amount = %v want %v", tc.budgeted, tc.actual, amount, tc.amount)
		}
		if math.IsNaN(pct) || math.IsInf(pct, 0) || math.Abs(pct-tc.pct) > 1e-9 {
			t.Errorf("Overrun(%v, %v) pct = %v want %v", tc.budgeted, tc.actual, pct, tc.pct)
		}
	}
}

func TestFlagBudgetOverrun_OneDecimalPercentage(t *testing.T) {
	env := newEnv(t)
	out, err := env.FlagBudgetOverrun(tools.BudgetOverrunInput{
		Category: "meals", BudgetedAmount: 3, ActualAmount: 4, Reason: "r",
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(gjson.Get(out, "message").String(), "$1.00 (33.3%)"), out)
}

func TestFlagBudgetOverrun_ConsecutiveIDsDiffer(t *testing.T) {
	env := newEnv(t)
	in := tools.BudgetOverrunInput{Category: "c", BudgetedAmount: 1, ActualAmount: 2, Reason: "r"}
	_, err := env.FlagBudgetOverrun(in)
	require.NoError(t, err)
	_, err = env.FlagBudgetOverrun(in)
	require.NoError(t, err)

	names := listArtifacts(t, env, "budget-alert-*.txt")
	require.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1])
}

func TestShortID_LengthAndAlphabet(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9A-F]+$`)
	for _, n := range []int{6, 8} {
		id := tools.ShortID(n)
		assert.Len(t, id, n)
		assert.Regexp(t, hex, id)
	}
}
