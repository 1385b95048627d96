// Package dialog implements multi-turn slot-filling flows. An Engine
// holds flow definitions and per-session instances; each turn either
// starts a flow from a trigger intent or advances the active one.
package dialog

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/b2bhub/quoteflow/internal/models"
)

// DefaultMaxAttempts bounds validation retries per slot before the flow
// is cancelled.
const DefaultMaxAttempts = 3

const defaultErrorMessage = "I didn't understand that. Could you try again?"

// Validator accepts or rejects a candidate slot value.
type Validator func(string) bool

// Normalizer canonicalizes a slot value before validation.
type Normalizer func(string) string

// Slot is one piece of information a flow collects.
type Slot struct {
	Name            string
	Prompt          string
	Required        bool
	EntityType      models.EntityType
	Validator       Validator
	Normalizer      Normalizer
	ErrorMessage    string
	RepromptMessage string
	MaxAttempts     int

	value    string
	filled   bool
	attempts int
}

// Value returns the filled value and whether the slot is filled.
func (s *Slot) Value() (string, bool) {
	return s.value, s.filled
}

func (s *Slot) validate(value string) bool {
	if s.Validator != nil {
		return s.Validator(value)
	}
	return strings.TrimSpace(value) != ""
}

func (s *Slot) normalize(value string) string {
	if s.Normalizer != nil {
		return s.Normalizer(value)
	}
	return strings.TrimSpace(value)
}

// prefill stores a value collected before the slot was prompted. It
// runs the same normalize-then-validate path as fillSlot but counts no
// attempt.
func (s *Slot) prefill(value string) bool {
	normalized := s.normalize(value)
	if !s.validate(normalized) {
		return false
	}
	s.value = normalized
	s.filled = true
	return true
}

func (s *Slot) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *Slot) errorMessage() string {
	if s.ErrorMessage != "" {
		return s.ErrorMessage
	}
	return defaultErrorMessage
}

func (s *Slot) reset() {
	s.value = ""
	s.filled = false
	s.attempts = 0
}

func (s *Slot) clone() *Slot {
	c := *s
	return &c
}

var nonDigitRe = regexp.MustCompile(`[^\d]`)

// PositiveInteger accepts whole numbers greater than zero.
func PositiveInteger(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n > 0
}

// MinInteger accepts whole numbers of at least min.
func MinInteger(min int) Validator {
	return func(value string) bool {
		n, err := strconv.Atoi(value)
		return err == nil && n >= min
	}
}

// MinLength accepts values of at least n characters.
func MinLength(n int) Validator {
	return func(value string) bool {
		return len(value) >= n
	}
}

// EmailFormat accepts addresses with an @ and a dotted domain.
func EmailFormat(value string) bool {
	at := strings.LastIndex(value, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(value[at+1:], ".")
}

// OrderNumberFormat accepts references of 4+ characters containing a
// digit.
func OrderNumberFormat(value string) bool {
	if len(value) < 4 {
		return false
	}
	for _, r := range value {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// DigitsOnly strips everything but digits.
func DigitsOnly(value string) string {
	return nonDigitRe.ReplaceAllString(value, "")
}

// LowerTrim lowercases and trims.
func LowerTrim(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// UpperNoSpace uppercases and removes spaces.
func UpperNoSpace(value string) string {
	return strings.ReplaceAll(strings.ToUpper(value), " ", "")
}
