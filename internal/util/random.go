package util

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

const randomIDPlaceholder = "{random_id}"

// QuoteReference returns a five-digit RFQ reference number.
func QuoteReference() int {
	return rand.IntN(90000) + 10000
}

// FillQuoteReference substitutes the {random_id} placeholder in message
// templates with a fresh reference number.
func FillQuoteReference(message string) string {
	if !strings.Contains(message, randomIDPlaceholder) {
		return message
	}
	return strings.ReplaceAll(message, randomIDPlaceholder, strconv.Itoa(QuoteReference()))
}
