// Package extract recognizes typed entities (quantities, prices, dates,
// order and RFQ numbers, emails, phones, companies, percentages, products)
// in raw user text using pattern rules, a product gazetteer, and fuzzy
// matching with global overlap resolution.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/b2bhub/quoteflow/internal/models"
)

// rule is a single pattern with its base confidence. RE2 has no lookahead,
// so exclusions are expressed as post-match checks: rejectValue rejects a
// match whose captured value matches, rejectAfter rejects a match whose
// trailing text begins with a match.
type rule struct {
	re          *regexp.Regexp
	confidence  float64
	rejectValue *regexp.Regexp
	rejectAfter *regexp.Regexp
}

// patternOrder fixes the extraction order of pattern-based types. Overlap
// ties are broken in favor of the earlier-produced entity, so this order
// decides which type wins an exact tie.
var patternOrder = []models.EntityType{
	models.EntityQuantity,
	models.EntityOrderNumber,
	models.EntityRFQID,
	models.EntityPrice,
	models.EntityDate,
	models.EntityEmail,
	models.EntityPhone,
	models.EntityCompany,
	models.EntityPercentage,
}

func defaultPatterns() map[models.EntityType][]rule {
	return map[models.EntityType][]rule{
		models.EntityQuantity: {
			// "500 units", "1,000 pieces", "50 pcs", "20k pieces"
			{re: regexp.MustCompile(`(?i)(\d{1,7}(?:[.,]\d{1,3})*[kK]?)\s*(?:units?|pcs?|pieces?|items?|ea)`), confidence: 0.95},
			// "order 500", "need 1000", "buy 5k"
			{re: regexp.MustCompile(`(?i)(?:order|buy|need|want|require|purchase)\s+(\d{1,7}(?:[.,]\d{1,3})*[kK]?)`), confidence: 0.85},
			// "500 of them", "1000 of those"
			{re: regexp.MustCompile(`(?i)(\d{1,7}(?:,\d{3})*)\s*(?:of\s+them|of\s+those|of\s+these)`), confidence: 0.80},
			// "quantity: 500", "qty 500"
			{re: regexp.MustCompile(`(?i)(?:quantity|qty)[:\s]+(\d{1,7}(?:,\d{3})*)`), confidence: 0.95},
			// standalone number; rejected when followed by a duration/money/percent
			// unit so "500 days" or "450 dollars" never reads as a quantity
			{re: regexp.MustCompile(`\b(\d{3,6})\b`), confidence: 0.60,
				rejectAfter: regexp.MustCompile(`(?i)^\s*(?:days?|weeks?|hours?|minutes?|\$|dollars?|%|percent)`)},
		},
		models.EntityOrderNumber: {
			// "PO-12345", "PO#12345", "po 12345"
			{re: regexp.MustCompile(`(?i)(?:PO|P\.O\.)[#\-\s]?(\d{4,10})`), confidence: 0.95},
			// "order number 12345", "order #ABC123"; REQ/RFQ ids are not order numbers
			{re: regexp.MustCompile(`(?i)(?:order\s+(?:number|#|no\.?)|order\s+id)[:\s]*([A-Z0-9\-]{4,15})`), confidence: 0.90,
				rejectValue: regexp.MustCompile(`(?i)^(?:REQ|RFQ)`)},
			// "#ABC12345" standalone
			{re: regexp.MustCompile(`(?i)#([A-Z]{2,4}\d{4,10})`), confidence: 0.85,
				rejectValue: regexp.MustCompile(`(?i)^(?:REQ|RFQ)`)},
			// "tracking ABC123456"
			{re: regexp.MustCompile(`(?i)(?:tracking|shipment)[:\s#]*([A-Z0-9]{8,20})`), confidence: 0.85},
		},
		models.EntityRFQID: {
			// "REQ-12345", "REQ 12345", "#REQ-999"
			{re: regexp.MustCompile(`(?i)#?(REQ[-\s]?\d{3,10})`), confidence: 0.95},
			{re: regexp.MustCompile(`(?i)#?(RFQ[-\s]?\d{3,10})`), confidence: 0.90},
		},
		models.EntityPrice: {
			// "$450.00", "$ 1,000"
			{re: regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`), confidence: 0.95},
			// "450 dollars", "1000 usd"
			{re: regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*(?:dollars?|usd)`), confidence: 0.90},
			// "budget 5000", "price 450"
			{re: regexp.MustCompile(`(?i)(?:budget|price|cost|spend)[:\s]*\$?(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`), confidence: 0.85},
			// "around $500", "about 1000"
			{re: regexp.MustCompile(`(?i)(?:around|about|approximately|~)\s*\$?(\d{1,3}(?:,\d{3})*)`), confidence: 0.75},
		},
		models.EntityDate: {
			// "01/15/2024", "2024-01-15"
			{re: regexp.MustCompile(`\b(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})\b`), confidence: 0.95},
			{re: regexp.MustCompile(`\b(\d{4}[/\-]\d{1,2}[/\-]\d{1,2})\b`), confidence: 0.95},
			// "January 15", "Jan 15, 2024"
			{re: regexp.MustCompile(`(?i)\b((?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?)\b`), confidence: 0.90},
			// "next week", "next monday"
			{re: regexp.MustCompile(`(?i)\b(next\s+(?:week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`), confidence: 0.85},
			// "in 5 days", "within 2 weeks"
			{re: regexp.MustCompile(`(?i)\b((?:in|within)\s+\d+\s+(?:days?|weeks?|months?))\b`), confidence: 0.85},
			// "by end of month", "by friday"
			{re: regexp.MustCompile(`(?i)\b(by\s+(?:end\s+of\s+)?(?:week|month|(?:mon|tues|wednes|thurs|fri|satur|sun)day))\b`), confidence: 0.80},
		},
		models.EntityEmail: {
			{re: regexp.MustCompile(`([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`), confidence: 0.98},
		},
		models.EntityPhone: {
			// US format: (123) 456-7890, 123-456-7890, 1234567890
			{re: regexp.MustCompile(`(\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})`), confidence: 0.90},
		},
		models.EntityCompany: {
			// "from Acme Inc", "at XYZ Corp"; trigger words keep this from
			// swallowing phrases like "is the lead time"
			{re: regexp.MustCompile(`(?i)(?:\bfrom\b|\bat\b|\bcompany(?:\s+name)?[:\s]+)\s*([A-Z][a-zA-Z0-9\s&\-.]{2,}?(?:\s+(?:Inc|LLC|Ltd|Corp|Co|Company|Industries|Manufacturing|Solutions|Systems))?)\s*(?:[,.]|$)`), confidence: 0.75},
		},
		models.EntityPercentage: {
			// "15%", "20 percent"
			{re: regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{1,2})?)\s*(?:%|percent)`), confidence: 0.95},
		},
	}
}

var (
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
	percentWords  = strings.NewReplacer("%", "", "percent", "")
)

// normalizeValue converts a raw captured value into the canonical form
// for its type.
func normalizeValue(t models.EntityType, value string) string {
	value = strings.TrimSpace(value)

	switch t {
	case models.EntityQuantity:
		clean := strings.ToLower(value)
		clean = strings.ReplaceAll(clean, ",", "")
		clean = strings.ReplaceAll(clean, " ", "")
		multiplier := 1.0
		if strings.HasSuffix(clean, "k") {
			multiplier = 1000
			clean = strings.TrimSuffix(clean, "k")
		}
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return value
		}
		return strconv.FormatInt(int64(v*multiplier), 10)

	case models.EntityPrice:
		clean := strings.ReplaceAll(value, "$", "")
		clean = strings.ReplaceAll(clean, ",", "")
		return strings.TrimSpace(clean)

	case models.EntityOrderNumber:
		return strings.ReplaceAll(strings.ToUpper(value), " ", "")

	case models.EntityEmail:
		return strings.ToLower(value)

	case models.EntityPhone:
		// Keep digits and any leading "+".
		plus := ""
		if strings.HasPrefix(value, "+") {
			plus = "+"
		}
		return plus + nonPhoneChars.ReplaceAllString(value, "")

	case models.EntityPercentage:
		return strings.TrimSpace(percentWords.Replace(strings.ToLower(value)))

	case models.EntityRFQID:
		norm := strings.ReplaceAll(strings.ToUpper(value), " ", "")
		if strings.Contains(norm, "REQ") && !strings.Contains(norm, "-") {
			norm = strings.Replace(norm, "REQ", "REQ-", 1)
		}
		return norm
	}

	return value
}
