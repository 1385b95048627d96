package extract

import (
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/b2bhub/quoteflow/internal/models"
)

// Confidence assigned to catalog matches by how specific the matched
// variation is.
const (
	canonicalMatchConfidence = 0.95
	longVariantConfidence    = 0.85
	shortVariantConfidence   = 0.70

	// Fuzzy candidates below this sequence ratio are discarded. 0.80 is
	// strict enough to reject "order" vs "solder" while still accepting
	// transpositions like "snesor" vs "sensor".
	fuzzyRatioThreshold = 0.80
)

// fuzzyStopWords are common conversational words that must never fuzz into
// a product name ("order" vs "solder", "use" vs "fuse").
var fuzzyStopWords = map[string]bool{
	"order": true, "query": true, "price": true, "unit": true, "use": true,
	"which": true, "what": true, "where": true, "how": true, "when": true,
	"need": true, "want": true, "find": true, "show": true, "list": true,
	"minimum": true, "maximum": true, "quantity": true, "quote": true,
	"buy": true, "purchase": true, "get": true, "have": true,
	"lead": true, "time": true, "date": true,
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

// defaultCatalog is the built-in industrial-parts catalog: canonical name
// to the surface variations customers use for it.
func defaultCatalog() map[string][]string {
	return map[string][]string{
		"servo motor":             {"servo", "servo motor", "servomotor", "industrial servo", "servo motors", "servos", "motor", "motors"},
		"fiber optic cable":       {"fiber", "fiber optic", "optical cable", "fibre optic", "fiber cable", "fiber optic cables", "fiber cables", "cable", "cables"},
		"actuator":                {"actuator", "actuators", "heavy duty actuator", "linear actuator", "pneumatic actuator"},
		"controller":              {"controller", "controllers", "plc", "plcs", "programmable controller", "logic controller"},
		"sensor":                  {"sensor", "sensors", "proximity sensor", "temperature sensor", "pressure sensor"},
		"power supply":            {"power supply", "power supplies", "psu", "power unit"},
		"relay":                   {"relay", "relays", "solid state relay", "ssr"},
		"conveyor":                {"conveyor", "conveyors", "conveyor belt", "belt system"},
		"pump":                    {"pump", "pumps", "hydraulic pump", "vacuum pump"},
		"valve":                   {"valve", "valves", "solenoid valve", "control valve"},
		"optics":                  {"optics", "optical components", "lens", "lenses", "mirror", "mirrors", "prism", "prisms"},
		"pneumatic cylinder":      {"pneumatic cylinder", "cylinder", "air cylinder"},
		"hydraulic cylinder":      {"hydraulic cylinder", "hydraulic ram"},
		"gearbox":                 {"gearbox", "gear box", "reducer", "gear reducer"},
		"industrial robot":        {"industrial robot", "robot arm", "robot", "robotic arm"},
		"bearing":                 {"bearing", "bearings", "ball bearing", "roller bearing"},
		"stepper motor":           {"stepper motor", "stepper", "stepping motor"},
		"3d printer":              {"3d printer", "3d printing", "additive manufacturing"},
		"fastener":                {"fastener", "fasteners", "screw", "bolt", "nut", "washer", "nuts and bolts"},
		"human machine interface": {"human machine interface", "hmi", "panel pc", "touch panel"},
		"wiring":                  {"wiring", "wire", "electrical wire", "hook up wire"},
		"resistor":                {"resistor", "resistors"},
		"soldering station":       {"soldering station", "soldering iron", "solder"},
		"oscilloscope":            {"oscilloscope", "scope", "o-scope"},
		"multimeter":              {"multimeter", "meter", "multi meter"},
		"capacitor":               {"capacitor", "cap"},
		"diode":                   {"diode", "led", "zener"},
		"transistor":              {"transistor", "mosfet", "bjt"},
		"microcontroller":         {"microcontroller", "mcu", "arduino", "esp32", "stm32"},
		"development board":       {"development board", "dev board", "eval board"},
		"led":                     {"led", "light emitting diode"},
		"lcd screen":              {"lcd screen", "lcd", "display", "monitor", "screen"},
		"switch":                  {"switch", "switches", "toggle switch", "push button"},
		"connector":               {"connector", "plug", "socket", "jack"},
		"terminal block":          {"terminal block", "terminal strip"},
		"fuse":                    {"fuse", "circuit protection"},
		"circuit breaker":         {"circuit breaker", "breaker", "mcb"},
		"contactor":               {"contactor", "starter"},
		"transformer":             {"transformer", "power transformer"},
		"inverter":                {"inverter", "vfd", "variable frequency drive"},
		"battery":                 {"battery", "batteries", "cell", "li-ion", "lithium"},
		"solar panel":             {"solar panel", "pv panel", "photovoltaic"},
		"wind turbine":            {"wind turbine", "turbine"},
		"cable tie":               {"cable tie", "zip tie"},
		"heat shrink tubing":      {"heat shrink tubing", "heat shrink", "shrink tube"},
		"enclosure":               {"enclosure", "box", "cabinet", "housing"},
		"fan":                     {"fan", "cooling fan"},
		"heatsink":                {"heatsink", "heat sink"},
		"thermal paste":           {"thermal paste", "thermal compound", "grease"},
		"screw":                   {"screw", "screws"},
		"nut":                     {"nut", "nuts"},
		"bolt":                    {"bolt", "bolts"},
		"seal":                    {"seal", "seals", "sealing", "gasket", "o-ring", "washers"},
	}
}

// extractCatalog finds literal catalog mentions. Variations are tried
// longest first so "servo motor" is seen before "servo"; word boundaries
// are enforced on both sides with a plural "s"/"es" allowance.
func (x *Extractor) extractCatalog(text string) []models.Entity {
	var entities []models.Entity
	lower := strings.ToLower(text)

	for name, variations := range x.products {
		sorted := make([]string, len(variations))
		copy(sorted, variations)
		sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

		for _, variation := range sorted {
			v := strings.ToLower(variation)
			from := 0
			for {
				rel := strings.Index(lower[from:], v)
				if rel < 0 {
					break
				}
				idx := from + rel
				after := idx + len(v)

				suffix := 0
				if after < len(lower) && lower[after] == 's' {
					suffix = 1
				} else if after+1 < len(lower) && lower[after:after+2] == "es" {
					suffix = 2
				}
				end := after + suffix

				beforeOK := idx == 0 || !isWordByte(lower[idx-1])
				afterOK := end >= len(lower) || !isWordByte(lower[end])

				if beforeOK && afterOK {
					conf := shortVariantConfidence
					if v == name {
						conf = canonicalMatchConfidence
					} else if len(v) > 5 {
						conf = longVariantConfidence
					}
					entities = append(entities, models.Entity{
						Type:         models.EntityProduct,
						Value:        name,
						OriginalText: text[idx:end],
						Start:        idx,
						End:          end,
						Confidence:   conf,
					})
				}
				from = idx + 1
			}
		}
	}
	return dedupeEntities(entities)
}

// extractFuzzy matches misspelled product mentions ("snesor", "batreies")
// by scoring word n-grams up to three words against every catalog
// variation with a sequence ratio.
func (x *Extractor) extractFuzzy(text string) []models.Entity {
	lower := strings.ToLower(text)
	spans := wordRe.FindAllStringIndex(lower, -1)
	if len(spans) == 0 {
		return nil
	}

	type variant struct {
		text      string
		canonical string
	}
	var variants []variant
	for name, vs := range x.products {
		for _, v := range vs {
			variants = append(variants, variant{strings.ToLower(v), name})
		}
	}

	var entities []models.Entity
	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(spans); i++ {
			start := spans[i][0]
			end := spans[i+n-1][1]

			words := make([]string, 0, n)
			for _, s := range spans[i : i+n] {
				words = append(words, lower[s[0]:s[1]])
			}
			ngram := strings.Join(words, " ")

			if fuzzyStopWords[ngram] {
				continue
			}
			// Exact matches for short words are the catalog pass's job;
			// fuzzing them invites "use" vs "fuse" noise.
			if len(ngram) < 4 {
				continue
			}

			for _, v := range variants {
				diff := len(ngram) - len(v.text)
				if diff > 3 || diff < -3 {
					continue
				}
				ratio := float64(fuzzy.Ratio(ngram, v.text)) / 100
				if ratio < fuzzyRatioThreshold {
					continue
				}
				entities = append(entities, models.Entity{
					Type:         models.EntityProduct,
					Value:        v.canonical,
					OriginalText: text[start:end],
					Start:        start,
					End:          end,
					Confidence:   0.6 + ratio*0.3,
				})
			}
		}
	}
	return entities
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
