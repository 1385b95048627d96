package extract

import (
	"testing"

	"github.com/b2bhub/quoteflow/internal/models"
)

func bestValue(t *testing.T, m models.EntityMap, typ models.EntityType) string {
	t.Helper()
	e, ok := m.Best(typ)
	if !ok {
		t.Fatalf("expected a %s entity, got none (map: %v)", typ, m)
	}
	return e.Value
}

func TestQuantityNormalization(t *testing.T) {
	x := New()

	tests := []struct {
		text string
		want string
	}{
		{"I need 500 units", "500"},
		{"quote me for 1,000 pieces", "1000"},
		{"we want to order 20k pieces", "20000"},
		{"quantity: 750", "750"},
		{"can you do 1.5k units", "1500"},
	}

	for _, tc := range tests {
		got := bestValue(t, x.ExtractAll(tc.text), models.EntityQuantity)
		if got != tc.want {
			t.Errorf("ExtractAll(%q) quantity = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestQuantityRejectsTrailingUnits(t *testing.T) {
	x := New()

	m := x.ExtractAll("can you ship in 500 days")
	if _, ok := m.Best(models.EntityQuantity); ok {
		t.Errorf("expected no quantity for a duration, got %v", m[models.EntityQuantity])
	}
	if _, ok := m.Best(models.EntityDate); !ok {
		t.Errorf("expected a date entity for %q", "in 500 days")
	}
}

func TestRFQIDNormalization(t *testing.T) {
	x := New()

	tests := []struct {
		text string
		want string
	}{
		{"what happened to REQ-9876", "REQ-9876"},
		{"status of req 9876 please", "REQ-9876"},
		{"checking on #REQ-123", "REQ-123"},
	}

	for _, tc := range tests {
		got := bestValue(t, x.ExtractAll(tc.text), models.EntityRFQID)
		if got != tc.want {
			t.Errorf("ExtractAll(%q) rfq_id = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestOrderNumberExcludesRFQ(t *testing.T) {
	x := New()

	m := x.ExtractAll("order number REQ-9876")
	if _, ok := m.Best(models.EntityOrderNumber); ok {
		t.Errorf("RFQ reference must not extract as order_number: %v", m[models.EntityOrderNumber])
	}
	if got := bestValue(t, m, models.EntityRFQID); got != "REQ-9876" {
		t.Errorf("rfq_id = %q, want REQ-9876", got)
	}
}

func TestPriceAndPercentage(t *testing.T) {
	x := New()

	m := x.ExtractAll("the budget is $1,450.00 and we expect a 15% discount")
	if got := bestValue(t, m, models.EntityPrice); got != "1450.00" {
		t.Errorf("price = %q, want 1450.00", got)
	}
	if got := bestValue(t, m, models.EntityPercentage); got != "15" {
		t.Errorf("percentage = %q, want 15", got)
	}
}

func TestEmailLowercased(t *testing.T) {
	x := New()

	got := bestValue(t, x.ExtractAll("reach me at Buyer@Acme.COM"), models.EntityEmail)
	if got != "buyer@acme.com" {
		t.Errorf("email = %q, want buyer@acme.com", got)
	}
}

func TestProductCanonicalization(t *testing.T) {
	x := New()

	tests := []struct {
		text string
		want string
	}{
		{"do you sell servos", "servo motor"},
		{"price for fibre optic please", "fiber optic cable"},
		{"we need sensors", "sensor"},
		{"looking for a plc", "controller"},
	}

	for _, tc := range tests {
		got := bestValue(t, x.ExtractAll(tc.text), models.EntityProduct)
		if got != tc.want {
			t.Errorf("ExtractAll(%q) product = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestFuzzyProductMatch(t *testing.T) {
	x := New()

	e, ok := x.ExtractAll("how much for a snesor").Best(models.EntityProduct)
	if !ok {
		t.Fatal("expected fuzzy match for misspelled product")
	}
	if e.Value != "sensor" {
		t.Errorf("fuzzy product = %q, want sensor", e.Value)
	}
	if e.Confidence < 0.80 || e.Confidence > 0.90 {
		t.Errorf("fuzzy confidence = %.2f, want scaled value in (0.80, 0.90)", e.Confidence)
	}
}

func TestFuzzySkipsStopWords(t *testing.T) {
	x := New()

	// "order" is one edit cluster away from "solder" but must never fuzz
	// into a product.
	m := x.ExtractAll("I would like to place an order")
	if _, ok := m.Best(models.EntityProduct); ok {
		t.Errorf("stop word produced a product entity: %v", m[models.EntityProduct])
	}
}

func TestOverlapPrefersLongerSpan(t *testing.T) {
	x := New()

	products := x.ExtractAll("quote for a hydraulic cylinder")[models.EntityProduct]
	if len(products) != 1 {
		t.Fatalf("expected exactly one product after overlap resolution, got %v", products)
	}
	if products[0].Value != "hydraulic cylinder" {
		t.Errorf("product = %q, want hydraulic cylinder", products[0].Value)
	}
}

func TestResolveOverlapsTieKeepsEarlier(t *testing.T) {
	a := models.Entity{Type: models.EntityQuantity, Value: "500", Start: 0, End: 3, Confidence: 0.9}
	b := models.Entity{Type: models.EntityPrice, Value: "500", Start: 0, End: 3, Confidence: 0.9}

	got := resolveOverlaps([]models.Entity{a, b})
	if len(got) != 1 {
		t.Fatalf("expected one survivor, got %d", len(got))
	}
	if got[0].Type != models.EntityQuantity {
		t.Errorf("tie survivor = %s, want the earlier-produced quantity", got[0].Type)
	}
}

func TestExtractForIntentFiltersTypes(t *testing.T) {
	x := New()

	got := x.ExtractForIntent("track order #AB1234, it was 500 units of sensors", "INFO_TRACK")
	if _, ok := got[models.EntityOrderNumber]; !ok {
		t.Fatalf("expected order_number for INFO_TRACK, got %v", got)
	}
	if _, ok := got[models.EntityQuantity]; ok {
		t.Errorf("quantity is not relevant for INFO_TRACK, got %v", got)
	}
	if _, ok := got[models.EntityProduct]; ok {
		t.Errorf("product is not relevant for INFO_TRACK, got %v", got)
	}
}

func TestAddProductExtendsCatalog(t *testing.T) {
	x := New()

	if _, ok := x.ExtractAll("need some flux capacitors").Best(models.EntityProduct); ok {
		t.Fatal("unexpected product match before catalog extension")
	}

	x.AddProduct("flux capacitor", []string{"flux capacitor", "flux capacitors"})

	got := bestValue(t, x.ExtractAll("need some flux capacitors"), models.EntityProduct)
	if got != "flux capacitor" {
		t.Errorf("product = %q, want flux capacitor", got)
	}
}

func TestAddProductsFromList(t *testing.T) {
	x := New()
	x.AddProductsFromList([]CatalogProduct{
		{Name: "Encoder", Aliases: []string{"rotary encoder"}},
		{Name: ""},
	})

	got := bestValue(t, x.ExtractAll("quote a rotary encoder"), models.EntityProduct)
	if got != "encoder" {
		t.Errorf("product = %q, want encoder", got)
	}
}
