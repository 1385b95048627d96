// Package tone scores the emotional tone of user messages and wraps
// responses with empathetic phrasing. Detection combines an emotion
// keyword lexicon with a small valence scorer over sentiment-bearing
// words.
package tone

import (
	"math"
	"strings"
)

// Emotion categories.
const (
	EmotionNeutral    = "neutral"
	EmotionPositive   = "positive"
	EmotionHappy      = "happy"
	EmotionNegative   = "negative"
	EmotionSad        = "sad"
	EmotionAngry      = "angry"
	EmotionFrustrated = "frustrated"
	EmotionAnxious    = "anxious"
)

// Intensity bands.
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

// Signal is the result of tone detection for one message.
type Signal struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Compound   float64 `json:"compound"`
	Intensity  string  `json:"intensity"`
}

// emotionKeywords boosts detection when the user names their feeling
// outright. Keyword hits take precedence over valence scoring.
var emotionKeywords = map[string][]string{
	EmotionAngry:      {"angry", "furious", "mad", "outraged", "annoyed", "irritated", "hate", "terrible", "awful", "worst", "unacceptable"},
	EmotionFrustrated: {"frustrated", "frustrating", "stuck", "waiting", "forever", "still", "again", "keeps", "always", "never works", "issue", "problem"},
	EmotionSad:        {"sad", "disappointed", "unhappy", "sorry", "unfortunate", "depressed", "hopeless", "regret", "miss"},
	EmotionHappy:      {"happy", "great", "excellent", "wonderful", "amazing", "love", "thank", "thanks", "appreciate", "awesome", "fantastic", "perfect"},
	EmotionAnxious:    {"worried", "anxious", "nervous", "concern", "urgent", "asap", "hurry", "deadline", "emergency"},
}

// emotionOrder fixes the tie-break when several keyword groups hit.
var emotionOrder = []string{EmotionAngry, EmotionFrustrated, EmotionSad, EmotionHappy, EmotionAnxious}

// valence assigns pre-normalization weights to sentiment-bearing words.
// Weights follow three rough bands: mild 1.5, strong 2.3, extreme 3.2.
var valence = map[string]float64{
	"good": 1.5, "fine": 1.5, "nice": 1.5, "helpful": 1.5, "glad": 1.5,
	"thanks": 1.9, "thank": 1.9, "appreciate": 1.9, "pleased": 1.9,
	"great": 2.3, "happy": 2.3, "excellent": 2.3, "wonderful": 2.3,
	"love": 2.3, "awesome": 2.7, "amazing": 2.7, "fantastic": 2.7, "perfect": 2.7,
	"best": 2.3,

	"slow": -1.5, "late": -1.5, "wrong": -1.5, "poor": -1.5, "confusing": -1.5,
	"problem": -1.7, "issue": -1.7, "delay": -1.7, "broken": -1.9,
	"bad": -1.9, "disappointed": -2.3, "unhappy": -2.3, "sad": -2.3,
	"annoyed": -2.3, "frustrated": -2.3, "frustrating": -2.3, "angry": -2.7,
	"hate": -2.7, "unacceptable": -2.7, "terrible": -3.2, "awful": -3.2,
	"worst": -3.2, "furious": -3.2, "outraged": -3.2,
}

// boosters amplify the following sentiment word.
var boosters = map[string]float64{
	"very": 0.3, "really": 0.3, "so": 0.3, "extremely": 0.5, "absolutely": 0.5,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "isnt": true, "dont": true,
	"doesnt": true, "cant": true, "wont": true, "didnt": true,
}

const (
	// normalizationAlpha matches the VADER compound normalization curve.
	normalizationAlpha = 15.0
	negationDampening  = -0.74
	keywordConfidence  = 0.85
)

// Detect scores the emotional tone of text.
func Detect(text string) Signal {
	if strings.TrimSpace(text) == "" {
		return Signal{Emotion: EmotionNeutral, Confidence: 1.0, Intensity: IntensityLow}
	}

	lower := strings.ToLower(text)
	compound := compoundScore(lower)

	var emotion string
	var confidence float64
	switch keyword := keywordEmotion(lower); {
	case keyword != "":
		emotion = keyword
		confidence = keywordConfidence
	case compound >= 0.5:
		emotion = EmotionHappy
		confidence = math.Min(math.Abs(compound), 1.0)
	case compound >= 0.1:
		emotion = EmotionPositive
		confidence = math.Min(math.Abs(compound)*1.5, 1.0)
	case compound <= -0.5:
		switch {
		case containsAnyKeyword(lower, emotionKeywords[EmotionAngry]):
			emotion = EmotionAngry
		case containsAnyKeyword(lower, emotionKeywords[EmotionFrustrated]):
			emotion = EmotionFrustrated
		default:
			emotion = EmotionSad
		}
		confidence = math.Min(math.Abs(compound), 1.0)
	case compound <= -0.1:
		emotion = EmotionNegative
		confidence = math.Min(math.Abs(compound)*1.5, 1.0)
	default:
		emotion = EmotionNeutral
		confidence = 1.0 - math.Abs(compound)
	}

	intensity := IntensityLow
	switch abs := math.Abs(compound); {
	case abs >= 0.6:
		intensity = IntensityHigh
	case abs >= 0.3:
		intensity = IntensityMedium
	}

	return Signal{
		Emotion:    emotion,
		Confidence: math.Round(confidence*100) / 100,
		Compound:   compound,
		Intensity:  intensity,
	}
}

// compoundScore sums word valences with booster and negation handling,
// then squashes the total into [-1, 1].
func compoundScore(lower string) float64 {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})

	var sum float64
	for i, word := range words {
		word = strings.ReplaceAll(word, "'", "")
		weight, ok := valence[word]
		if !ok {
			continue
		}
		if i > 0 {
			prev := strings.ReplaceAll(words[i-1], "'", "")
			if boost, ok := boosters[prev]; ok {
				if weight > 0 {
					weight += boost
				} else {
					weight -= boost
				}
				prev = ""
				if i > 1 {
					prev = strings.ReplaceAll(words[i-2], "'", "")
				}
			}
			if negations[prev] {
				weight *= negationDampening
			}
		}
		sum += weight
	}

	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+normalizationAlpha)
}

func keywordEmotion(lower string) string {
	best := ""
	bestCount := 0
	for _, emotion := range emotionOrder {
		count := 0
		for _, keyword := range emotionKeywords[emotion] {
			if strings.Contains(lower, keyword) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = emotion
		}
	}
	return best
}

func containsAnyKeyword(lower string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Emoji returns a glyph for the emotion, for debug surfaces.
func Emoji(emotion string) string {
	switch emotion {
	case EmotionHappy:
		return "😊"
	case EmotionPositive:
		return "🙂"
	case EmotionNegative:
		return "😕"
	case EmotionSad:
		return "😢"
	case EmotionAngry:
		return "😠"
	case EmotionFrustrated:
		return "😤"
	case EmotionAnxious:
		return "😰"
	default:
		return "😐"
	}
}

// NeedsEmpathy reports whether responses for this emotion should be
// wrapped with empathetic phrasing.
func NeedsEmpathy(emotion string) bool {
	switch emotion {
	case EmotionSad, EmotionAngry, EmotionFrustrated, EmotionAnxious, EmotionNegative:
		return true
	}
	return false
}
