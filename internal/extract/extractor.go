package extract

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/b2bhub/quoteflow/internal/models"
)

// Extractor recognizes typed entities in user text. The catalog may be
// extended at runtime, so catalog access is guarded; pattern tables are
// immutable after construction.
type Extractor struct {
	mu       sync.RWMutex
	patterns map[models.EntityType][]rule
	products map[string][]string
}

// intentEntityTypes lists which entity types matter per intent. Intents
// not listed get the full set.
var intentEntityTypes = map[string][]models.EntityType{
	"INFO_MOQ":        {models.EntityProduct, models.EntityQuantity},
	"INFO_PRICE":      {models.EntityProduct, models.EntityQuantity, models.EntityPrice},
	"INFO_BULK":       {models.EntityProduct, models.EntityQuantity, models.EntityPrice, models.EntityPercentage},
	"INFO_TRACK":      {models.EntityOrderNumber, models.EntityRFQID},
	"INFO_SHIPPING":   {models.EntityProduct, models.EntityQuantity, models.EntityDate},
	"INFO_LEADTIME":   {models.EntityProduct, models.EntityQuantity, models.EntityDate},
	"INFO_SAMPLE":     {models.EntityProduct, models.EntityQuantity, models.EntityEmail},
	"INFO_RETURN":     {models.EntityOrderNumber, models.EntityProduct},
	"NAV_RFQ":         {models.EntityProduct, models.EntityQuantity, models.EntityCompany, models.EntityEmail, models.EntityPrice, models.EntityRFQID},
	"HELP":            {models.EntityProduct, models.EntityOrderNumber},
	"INFO_RFQ_STATUS": {models.EntityRFQID, models.EntityDate},
}

// New returns an Extractor loaded with the default pattern tables and
// product catalog.
func New() *Extractor {
	return &Extractor{
		patterns: defaultPatterns(),
		products: defaultCatalog(),
	}
}

// ExtractAll runs every recognizer over the text and returns the
// surviving entities grouped by type. Per-type duplicates keep the
// highest-confidence instance; cross-type overlapping spans are resolved
// globally (longest span, then confidence, then production order).
func (x *Extractor) ExtractAll(text string) models.EntityMap {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var all []models.Entity
	for _, t := range patternOrder {
		all = append(all, x.extractPattern(text, t)...)
	}

	productMatches := x.extractCatalog(text)
	if fuzzyMatches := x.extractFuzzy(text); len(fuzzyMatches) > 0 {
		productMatches = dedupeEntities(append(productMatches, fuzzyMatches...))
	}
	all = append(all, productMatches...)

	resolved := resolveOverlaps(all)

	out := make(models.EntityMap)
	for _, e := range resolved {
		out[e.Type] = append(out[e.Type], e)
	}
	if len(out) > 0 {
		slog.Debug("Extractor.ExtractAll: entities recognized", "types", len(out))
	}
	return out
}

// ExtractForIntent narrows ExtractAll to the types relevant for the
// intent and keeps the single best entity per type.
func (x *Extractor) ExtractForIntent(text, intent string) map[models.EntityType]models.Entity {
	all := x.ExtractAll(text)

	relevant, ok := intentEntityTypes[intent]
	if !ok {
		relevant = append(relevant, patternOrder...)
		relevant = append(relevant, models.EntityProduct)
	}

	result := make(map[models.EntityType]models.Entity)
	for _, t := range relevant {
		if best, ok := all.Best(t); ok {
			result[t] = best
		}
	}
	return result
}

// AddProduct registers a product and its surface variations, making them
// recognizable on the next extraction.
func (x *Extractor) AddProduct(canonicalName string, variations []string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	lowered := make([]string, len(variations))
	for i, v := range variations {
		lowered[i] = strings.ToLower(v)
	}
	x.products[strings.ToLower(canonicalName)] = lowered
}

// CatalogProduct is one entry for bulk catalog loading.
type CatalogProduct struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// AddProductsFromList loads products in bulk; the canonical name is
// always included as its own variation.
func (x *Extractor) AddProductsFromList(products []CatalogProduct) {
	for _, p := range products {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		x.AddProduct(name, append([]string{name}, p.Aliases...))
	}
}

func (x *Extractor) extractPattern(text string, t models.EntityType) []models.Entity {
	var entities []models.Entity

	for _, r := range x.patterns[t] {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			vs, ve := start, end
			if len(m) >= 4 && m[2] >= 0 {
				vs, ve = m[2], m[3]
			}
			value := text[vs:ve]

			if r.rejectValue != nil && r.rejectValue.MatchString(value) {
				continue
			}
			if r.rejectAfter != nil && r.rejectAfter.MatchString(text[end:]) {
				continue
			}

			entities = append(entities, models.Entity{
				Type:         t,
				Value:        normalizeValue(t, value),
				OriginalText: text[start:end],
				Start:        start,
				End:          end,
				Confidence:   r.confidence,
			})
		}
	}
	return dedupeEntities(entities)
}

// dedupeEntities collapses entities sharing (type, lowercased value) to
// the highest-confidence instance, preserving first-seen order.
func dedupeEntities(entities []models.Entity) []models.Entity {
	type key struct {
		t models.EntityType
		v string
	}
	index := make(map[key]int)
	var out []models.Entity

	for _, e := range entities {
		k := key{e.Type, strings.ToLower(e.Value)}
		if i, seen := index[k]; seen {
			if e.Confidence > out[i].Confidence {
				out[i] = e
			}
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

// resolveOverlaps drops entities whose spans overlap a stronger one.
// Longer spans beat shorter; equal spans fall to confidence; exact ties
// keep the earlier-produced entity so resolution is deterministic.
func resolveOverlaps(entities []models.Entity) []models.Entity {
	removed := make([]bool, len(entities))

	for i := 0; i < len(entities); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			if removed[i] || removed[j] {
				continue
			}
			a, b := entities[i], entities[j]
			if max(a.Start, b.Start) >= min(a.End, b.End) {
				continue
			}
			switch {
			case a.SpanLen() > b.SpanLen():
				removed[j] = true
			case b.SpanLen() > a.SpanLen():
				removed[i] = true
			case a.Confidence >= b.Confidence:
				removed[j] = true
			default:
				removed[i] = true
			}
		}
	}

	out := make([]models.Entity, 0, len(entities))
	for i, e := range entities {
		if !removed[i] {
			out = append(out, e)
		}
	}
	return out
}
