// Package chat implements the keyword driven assistant. It has no language
// model behind it: each message is matched against a fixed rule list.
package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Category string

const (
	CategoryExpense       Category = "expense_flow"
	CategoryIncome        Category = "income_flow"
	CategoryReport        Category = "report"
	CategoryAccount       Category = "account"
	CategoryClient        Category = "client"
	CategoryHelp          Category = "help"
	CategoryClarification Category = "clarification"
)

// Reply is the assistant answer for one message.
type Reply struct {
	Text     string         `json:"text"`
	Category Category       `json:"category"`
	Context  map[string]any `json:"context"`
}

// Rule fires when the lowercased message contains any of its keywords.
type Rule struct {
	Category Category
	Keywords []string
	Build    func(message string) Reply
}

func (r Rule) matches(lower string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Responder evaluates rules in order; the first match wins.
type Responder struct {
	rules    []Rule
	fallback func(message string) Reply
}

// NewResponder returns a responder with the default Italian rule set.
func NewResponder() *Responder {
	return &Responder{rules: DefaultRules(), fallback: clarification}
}

// NewResponderWithRules is used when a caller needs a custom rule list.
func NewResponderWithRules(rules []Rule) *Responder {
	return &Responder{rules: rules, fallback: clarification}
}

func (r *Responder) Respond(message string) Reply {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, rule := range r.rules {
		if rule.matches(lower) {
			reply := rule.Build(message)
			reply.Category = rule.Category
			if reply.Context == nil {
				reply.Context = map[string]any{}
			}
			return reply
		}
	}
	return r.fallback(message)
}

// DefaultRules lists expense before income so "spesa" wins over "ricavo"
// when both appear.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: CategoryExpense,
			Keywords: []string{"add expense", "expense", "spesa", "costo"},
			Build:    expenseFlow,
		},
		{
			Category: CategoryIncome,
			Keywords: []string{"add income", "income", "entrata", "ricavo"},
			Build:    incomeFlow,
		},
		{
			Category: CategoryReport,
			Keywords: []string{"report", "rapporto", "analisi"},
			Build: fixed(
				"Che tipo di report vorresti generare? Posso creare report per:\n"+
					"• Entrate e uscite mensili\n• Analisi delle categorie\n• Bilancio annuale\n• Cash flow",
				map[string]any{"action": "report_selection"},
			),
		},
		{
			Category: CategoryAccount,
			Keywords: []string{"account", "conto", "saldo"},
			Build: fixed(
				"Posso aiutarti con la gestione dei conti. Vuoi:\n"+
					"• Vedere il saldo dei conti\n• Aggiungere un nuovo conto\n• Modificare un conto esistente",
				map[string]any{"action": "account_management"},
			),
		},
		{
			Category: CategoryClient,
			Keywords: []string{"client", "cliente", "customer"},
			Build: fixed(
				"Gestione clienti attiva! Posso aiutarti a:\n"+
					"• Aggiungere un nuovo cliente\n• Cercare un cliente esistente\n• Modificare i dettagli di un cliente",
				map[string]any{"action": "client_management"},
			),
		},
		{
			Category: CategoryHelp,
			Keywords: []string{"help", "aiuto", "cosa puoi fare"},
			Build: fixed(
				"Ciao! Sono il tuo assistente finanziario. Posso aiutarti con:\n\n"+
					"Gestione transazioni: aggiungere entrate e uscite, categorizzare le spese.\n"+
					"Report e analisi: report finanziari, trend di spesa, cash flow.\n"+
					"Gestione clienti: nuovi clienti e contatti.\n"+
					"Conti: saldi e riconciliazione.\n\n"+
					"Cosa posso fare per te oggi?",
				nil,
			),
		},
	}
}

func fixed(text string, ctx map[string]any) func(string) Reply {
	return func(string) Reply {
		out := make(map[string]any, len(ctx))
		for k, v := range ctx {
			out[k] = v
		}
		return Reply{Text: text, Context: out}
	}
}

func expenseFlow(message string) Reply {
	if amount, ok := ExtractAmount(message); ok {
		return Reply{
			Text:    fmt.Sprintf("Perfetto! Hai speso €%s. Come hai pagato? (bonifico, contanti, carta)", formatAmount(amount)),
			Context: map[string]any{"step": "payment_method", "amount": amount},
		}
	}
	return Reply{
		Text:    "Perfetto! Per cosa è questa spesa?",
		Context: map[string]any{"step": "category"},
	}
}

func incomeFlow(message string) Reply {
	if amount, ok := ExtractAmount(message); ok {
		return Reply{
			Text:    fmt.Sprintf("Eccellente! Hai ricevuto €%s. Come hai ricevuto il pagamento?", formatAmount(amount)),
			Context: map[string]any{"step": "payment_method", "amount": amount},
		}
	}
	return Reply{
		Text:    "Fantastico! Da dove proviene questa entrata?",
		Context: map[string]any{"step": "source"},
	}
}

func clarification(string) Reply {
	return Reply{
		Text: "Non sono sicuro di aver capito. Puoi dirmi cosa vorresti fare? Ad esempio:\n" +
			"• \"Aggiungi una spesa\"\n• \"Mostra il report mensile\"\n• \"Gestisci clienti\"\n• \"Aiuto\" per vedere tutte le opzioni",
		Category: CategoryClarification,
		Context:  map[string]any{},
	}
}

// currency marked amounts take precedence over bare numbers
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[€$]\s?(\d+(?:[.,]\d{1,2})?)`),
	regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)\s?[€$]`),
	regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)`),
}

// ExtractAmount finds the first money amount in text. A comma is read as
// the decimal separator.
func ExtractAmount(text string) (float64, bool) {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
