package nlu

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/b2bhub/quoteflow/internal/models"
)

// FuzzyFloor is the minimum token-set score for a fuzzy match to count.
const FuzzyFloor = 0.5

// FuzzyMatcher scores user text against the intent keyword corpus with
// token-set ratios, which tolerate word order and extra words. Intents
// are scanned in sorted order so equal scores resolve deterministically.
type FuzzyMatcher struct {
	intents map[string][]string
	order   []string
}

// NewFuzzyMatcher builds a matcher over the given intent corpus.
func NewFuzzyMatcher(intents map[string][]string) *FuzzyMatcher {
	order := make([]string, 0, len(intents))
	for intent := range intents {
		order = append(order, intent)
	}
	sort.Strings(order)
	return &FuzzyMatcher{intents: intents, order: order}
}

// Match returns the best-scoring intent, or nil when nothing clears the
// floor, along with the raw best score either way. Emotion intents are
// excluded; the tone detector owns those.
func (m *FuzzyMatcher) Match(text string) (*models.IntentMatch, float64) {
	var bestIntent string
	bestScore := 0

	for _, intent := range m.order {
		if strings.HasPrefix(intent, "EMOTION_") {
			continue
		}
		for _, phrase := range m.intents[intent] {
			if score := fuzzy.TokenSetRatio(text, phrase); score > bestScore {
				bestScore = score
				bestIntent = intent
			}
		}
	}

	confidence := float64(bestScore) / 100
	if confidence < FuzzyFloor {
		return nil, confidence
	}
	return &models.IntentMatch{Intent: bestIntent, Confidence: confidence}, confidence
}
