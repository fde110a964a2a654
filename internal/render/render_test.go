package render

import (
	"strings"
	"testing"

	"github.com/BTreeMap/YonkeBot/internal/models"
)

func TestSearchResultsFallbacks(t *testing.T) {
	out := SearchResults("faro", []models.SearchResult{
		{SellerName: "", Description: "faro para jetta 2010, Condición: 7/10", Price: 0, Contact: "whatsapp:+5216671234567"},
		{SellerName: "Yonke El Güero", Description: "faro para tsuru 2015, Condición: 9/10", Price: 450, Contact: "+5216677654321"},
	})

	for _, want := range []string{
		"¡Encontré 2 resultado(s)!",
		"*Vendido por:* *Local sin Nombre*",
		"*Precio:* Contactar",
		"`wa.me/5216671234567`",
		"*Vendido por:* *Yonke El Güero*",
		"*Precio:* $450",
		"`wa.me/5216677654321`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "whatsapp:") {
		t.Errorf("transport scheme leaked into output:\n%s", out)
	}
}

func TestSearchResultsEmpty(t *testing.T) {
	out := SearchResults("defensa tsuru", nil)
	if out != NoResults("defensa tsuru") {
		t.Errorf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "no encontré nada") {
		t.Errorf("expected no-results wording, got %q", out)
	}
}

func TestListingsCreated(t *testing.T) {
	one := ListingsCreated([]models.Listing{{Description: "alternador para tsuru 2015, Condición: 8/10", Price: 800}})
	if !strings.Contains(one, "alternador para tsuru 2015") || !strings.Contains(one, "$800") {
		t.Errorf("single confirmation = %q", one)
	}
	many := ListingsCreated([]models.Listing{
		{Description: "a para b 2001, Condición: 1/10", Price: 1},
		{Description: "c para d 2002, Condición: 2/10", Price: 2},
	})
	if !strings.Contains(many, "¡Publiqué 2 piezas!") || !strings.Contains(many, "2. c para d 2002") {
		t.Errorf("multi confirmation = %q", many)
	}
}

func TestPrice(t *testing.T) {
	if Price(0) != "Contactar" || Price(-1) != "Contactar" || Price(1500) != "$1500" {
		t.Error("unexpected price rendering")
	}
}
