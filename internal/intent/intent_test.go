package intent

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"vender", Sell},
		{"Vender alternador tsuru 2015 condicion 8 precio 800", Sell},
		{"QUIERO VENDER unas defensas", Sell},
		{"nesecito vender un motor", Sell},
		{"bendo faros", Sell},
		{"se vende radiador", Sell},
		{"busco defensa tsuru", Search},
		{"Vusco alternador", Search},
		{"vuzcar puerta", Search},
		{"buzco espejo", Search},
		{"ocupo una fascia", Search},
		{"hola", Unknown},
		{"", Unknown},
		{"vendedor de confianza", Unknown},
		{"buscarlo mañana", Unknown},
		{"revender", Unknown},
		{"vendería", Unknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestClassifySellWinsTie(t *testing.T) {
	if got := Classify("busco a quien vender mi motor"); got != Sell {
		t.Errorf("expected Sell precedence, got %s", got)
	}
}

func TestClassifyEveryTrigger(t *testing.T) {
	for _, w := range SellTriggers() {
		if got := Classify("hola " + w + " alternador"); got != Sell {
			t.Errorf("sell trigger %q classified as %s", w, got)
		}
	}
	for _, w := range SearchTriggers() {
		if got := Classify("hola " + w + " alternador"); got != Search {
			t.Errorf("search trigger %q classified as %s", w, got)
		}
	}
}

func TestLexiconsAreDisjoint(t *testing.T) {
	sellTokens := make(map[string]bool)
	for _, p := range SellTriggers() {
		for _, tok := range strings.Fields(p) {
			sellTokens[tok] = true
		}
	}
	for _, p := range SearchTriggers() {
		for _, tok := range strings.Fields(p) {
			if sellTokens[tok] {
				t.Errorf("token %q appears in both lexicons", tok)
			}
		}
	}
	for _, p := range SearchTriggers() {
		if sellPattern.MatchString(p) {
			t.Errorf("search trigger %q matches the sell lexicon", p)
		}
	}
	for _, p := range SellTriggers() {
		if searchPattern.MatchString(p) {
			t.Errorf("sell trigger %q matches the search lexicon", p)
		}
	}
}

func TestStripSellTrigger(t *testing.T) {
	tests := map[string]string{
		"vender alternador tsuru 2015": " alternador tsuru 2015",
		"Quiero vender faros":          " faros",
		"vendo vendo radiador":         "  radiador",
		"Vendedor":                     "Vendedor",
	}
	for in, want := range tests {
		if got := StripSellTrigger(in); got != want {
			t.Errorf("StripSellTrigger(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripSearchTrigger(t *testing.T) {
	tests := map[string]string{
		"busco defensa tsuru": "defensa tsuru",
		"Búsco   alternador":  "alternador",
		"busco":               "",
		"vuzco faro Jetta":    "faro jetta",
	}
	for in, want := range tests {
		if got := StripSearchTrigger(in); got != want {
			t.Errorf("StripSearchTrigger(%q) = %q, want %q", in, got, want)
		}
	}
}
