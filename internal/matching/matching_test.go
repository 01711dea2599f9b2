package matching_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/archivist/internal/matching"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		algorithm matching.Algorithm
		pattern   string
		want      bool
	}{
		{"none never matches", "invoice", matching.None, "invoice", false},
		{"empty pattern never matches", "invoice", matching.Any, "   ", false},
		{"unknown algorithm never matches", "invoice", matching.Algorithm("soundex"), "invoice", false},
		{"any quoted phrase", "Ceci est une FACTURE", matching.Any, `"facture" "invoice"`, true},
		{"all quoted phrase", "Ceci est une FACTURE", matching.All, `"facture" "invoice"`, false},
		{"any bare terms", "Electricity bill for March", matching.Any, "gas electricity", true},
		{"all bare terms", "Electricity bill for March", matching.All, "bill march", true},
		{"all multi word phrase", "Your monthly statement is ready", matching.All, `"monthly statement" ready`, true},
		{"all missing phrase", "Your monthly bill is ready", matching.All, `"monthly statement" ready`, false},
		{"exact substring", "Payment to ACME Corp received", matching.Exact, "acme corp", true},
		{"exact requires whole pattern", "Payment to ACME received", matching.Exact, "acme corp", false},
		{"regex case insensitive", "Invoice No. 2024-117", matching.Regex, `invoice no\. \d{4}-\d+`, true},
		{"invalid regex does not match", "anything", matching.Regex, `([a-z`, false},
		{"fuzzy near match", "invoices", matching.Fuzzy, "Invoice", true},
		{"fuzzy distant", "receipt", matching.Fuzzy, "invoice", false},
		{"auto aliases fuzzy", "invoices", matching.Auto, "invoice", true},
		{"text trimmed", "   acme   ", matching.Exact, "acme", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matching.Match(tt.text, tt.algorithm, tt.pattern); got != tt.want {
				t.Errorf("Match(%q, %s, %q) = %v, want %v", tt.text, tt.algorithm, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMatchNoneOrEmptyIsAlwaysFalse(t *testing.T) {
	texts := []string{"", "invoice", "   ", `"quoted"`, "none"}
	algorithms := []matching.Algorithm{
		matching.Any, matching.All, matching.Exact,
		matching.Regex, matching.Fuzzy, matching.Auto,
	}

	for _, text := range texts {
		for _, a := range algorithms {
			if matching.Match(text, a, "") {
				t.Errorf("Match(%q, %s, \"\") = true", text, a)
			}
		}
		if matching.Match(text, matching.None, text) {
			t.Errorf("Match(%q, none, %q) = true", text, text)
		}
	}
}

func TestAllImpliesAny(t *testing.T) {
	patterns := []string{
		`"facture" "invoice"`,
		"bill march",
		`"monthly statement" ready`,
		"acme",
		`""`,
	}
	texts := []string{
		"Ceci est une FACTURE",
		"Electricity bill for March",
		"Your monthly statement is ready",
		"invoice from acme",
		"",
	}

	for _, p := range patterns {
		for _, text := range texts {
			if matching.Match(text, matching.All, p) && !matching.Match(text, matching.Any, p) {
				t.Errorf("all matched but any did not: text %q pattern %q", text, p)
			}
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{`"facture" "invoice"`, []string{"facture", "invoice"}},
		{`Gas "Electric Company"  water`, []string{"gas", "electric company", "water"}},
		{`"" solo`, []string{"solo"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := matching.Tokenize(tt.pattern); !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want matching.Algorithm
	}{
		{"any", matching.Any},
		{" ALL ", matching.All},
		{"regex", matching.Regex},
		{"auto", matching.Auto},
		{"", matching.None},
		{"literal", matching.None},
	}

	for _, tt := range tests {
		if got := matching.ParseAlgorithm(tt.in); got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
