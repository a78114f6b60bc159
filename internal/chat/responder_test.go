package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondCategories(t *testing.T) {
	r := NewResponder()

	cases := []struct {
		message string
		want    Category
	}{
		{"devo registrare una spesa", CategoryExpense},
		{"Add Expense", CategoryExpense},
		{"ho avuto un ricavo", CategoryIncome},
		{"nuova ENTRATA", CategoryIncome},
		{"mostrami un report", CategoryReport},
		{"qual è il saldo?", CategoryAccount},
		{"aggiungi cliente", CategoryClient},
		{"aiuto", CategoryHelp},
		{"cosa puoi fare", CategoryHelp},
		{"buongiorno", CategoryClarification},
		{"", CategoryClarification},
		// expense is checked before income
		{"spesa e ricavo", CategoryExpense},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			reply := r.Respond(tc.message)
			require.Equal(t, tc.want, reply.Category)
			require.NotEmpty(t, reply.Text)
			require.NotNil(t, reply.Context)
		})
	}
}

func TestRespondIsDeterministic(t *testing.T) {
	r := NewResponder()
	require.Equal(t, r.Respond("report mensile"), r.Respond("report mensile"))
}

func TestExpenseFlowContext(t *testing.T) {
	r := NewResponder()

	reply := r.Respond("devo registrare una spesa")
	require.Equal(t, "category", reply.Context["step"])

	reply = r.Respond("spesa di €45,50 per cancelleria")
	require.Equal(t, "payment_method", reply.Context["step"])
	require.Equal(t, 45.5, reply.Context["amount"])
	require.Contains(t, reply.Text, "€45.50")

	reply = r.Respond("entrata 1200€")
	require.Equal(t, CategoryIncome, reply.Category)
	require.Equal(t, 1200.0, reply.Context["amount"])
}

func TestFixedRepliesDoNotShareContext(t *testing.T) {
	r := NewResponder()
	first := r.Respond("report")
	first.Context["action"] = "changed"

	second := r.Respond("report")
	require.Equal(t, "report_selection", second.Context["action"])
}

func TestExtractAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"€100", 100, true},
		{"100€", 100, true},
		{"$ 12.5", 12.5, true},
		{"pagato 100,50 ieri", 100.5, true},
		{"il 3 marzo ho speso €20", 20, true},
		{"nessun importo", 0, false},
		{"0", 0, false},
	}
	for _, tc := range cases {
		got, ok := ExtractAmount(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestCustomRules(t *testing.T) {
	r := NewResponderWithRules([]Rule{{
		Category: "greeting",
		Keywords: []string{"ciao"},
		Build:    func(string) Reply { return Reply{Text: "Ciao!"} },
	}})

	reply := r.Respond("Ciao a tutti")
	require.Equal(t, Category("greeting"), reply.Category)
	require.NotNil(t, reply.Context)
	require.Equal(t, CategoryClarification, r.Respond("aiuto").Category)
}
