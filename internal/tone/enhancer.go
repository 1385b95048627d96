package tone

import (
	"math/rand/v2"
	"strings"
)

// empathyPrefixes acknowledge the user's state before the answer.
var empathyPrefixes = map[string][]string{
	EmotionHappy: {
		"That's wonderful to hear! ",
		"I'm glad you're having a great experience! ",
		"Fantastic! ",
		"Great to hear that! ",
	},
	EmotionPositive: {
		"I'm happy to help! ",
		"Thanks for reaching out! ",
		"Of course! ",
	},
	EmotionNeutral: {
		"",
		"Sure! ",
		"Certainly! ",
	},
	EmotionNegative: {
		"I understand your concern. ",
		"I hear you. ",
		"Let me help with that. ",
	},
	EmotionSad: {
		"I'm sorry to hear that. ",
		"I understand this can be disappointing. ",
		"I apologize for any inconvenience. ",
		"I truly understand how you feel. ",
	},
	EmotionAngry: {
		"I completely understand your frustration, and I apologize. ",
		"I'm truly sorry for this experience. ",
		"I hear you, and I want to make this right. ",
		"I apologize sincerely for any inconvenience caused. ",
	},
	EmotionFrustrated: {
		"I understand this has been frustrating. ",
		"I'm sorry you've had to deal with this. ",
		"I can see this hasn't been easy. Let me help. ",
		"I apologize for the trouble you've been experiencing. ",
	},
	EmotionAnxious: {
		"I understand this is urgent for you. ",
		"Don't worry, I'm here to help. ",
		"Let's address your concern right away. ",
		"I can help you with this immediately. ",
	},
}

// empathySuffixes add warmth after the answer.
var empathySuffixes = map[string][]string{
	EmotionHappy: {
		" Is there anything else I can help you with today?",
		" Let me know if you need anything else!",
		"",
	},
	EmotionPositive: {
		" Feel free to ask if you have more questions!",
		"",
	},
	EmotionNeutral: {
		"",
		" Is there anything else you'd like to know?",
	},
	EmotionNegative: {
		" I'm here if you need further assistance.",
		" Please don't hesitate to reach out if you need more help.",
	},
	EmotionSad: {
		" We truly value your business and want to make things right.",
		" Please let me know how else I can assist you.",
		" We're committed to resolving this for you.",
	},
	EmotionAngry: {
		" Your satisfaction is our top priority.",
		" We take your feedback seriously and will work to improve.",
		" Please let me know if there's anything specific I can do to help.",
	},
	EmotionFrustrated: {
		" We appreciate your patience.",
		" I'll do my best to resolve this quickly.",
		" Thank you for your understanding.",
	},
	EmotionAnxious: {
		" Rest assured, we'll take care of this promptly.",
		" I'll prioritize this for you.",
		"",
	},
}

// situationResponses acknowledge specific circumstances ahead of the
// emotion-level prefix.
var situationResponses = map[string][]string{
	"waiting": {
		"I understand the wait can be frustrating. ",
		"I apologize for the delay you've experienced. ",
	},
	"issue": {
		"I'm sorry you're experiencing this issue. ",
		"Let me help you resolve this problem. ",
	},
	"urgent": {
		"I understand this is time-sensitive. ",
		"Let me prioritize this for you right away. ",
	},
}

var (
	waitingKeywords = []string{"waiting", "wait", "long", "forever", "still", "yet", "when"}
	issueKeywords   = []string{"problem", "issue", "error", "broken", "doesn't work", "not working", "bug"}
	urgentKeywords  = []string{"urgent", "asap", "immediately", "emergency", "deadline", "hurry"}
)

// Enhance wraps a base response with an empathetic prefix, and with a
// suffix when the emotion is non-neutral at medium or high intensity.
func Enhance(base, emotion, intensity string) string {
	prefixes, ok := empathyPrefixes[emotion]
	if !ok {
		prefixes = empathyPrefixes[EmotionNeutral]
	}
	prefix := pick(prefixes)

	suffix := ""
	if emotion != EmotionNeutral && (intensity == IntensityMedium || intensity == IntensityHigh) {
		suffix = pick(empathySuffixes[emotion])
	}

	return prefix + base + suffix
}

// Acknowledgment returns a standalone empathy opener for the emotion.
func Acknowledgment(emotion string) string {
	return pick(empathyPrefixes[emotion])
}

// DetectSituations flags circumstances in the message that deserve
// specific acknowledgment.
func DetectSituations(text string) []string {
	lower := strings.ToLower(text)
	var detected []string
	if containsAnyKeyword(lower, waitingKeywords) {
		detected = append(detected, "waiting")
	}
	if containsAnyKeyword(lower, issueKeywords) {
		detected = append(detected, "issue")
	}
	if containsAnyKeyword(lower, urgentKeywords) {
		detected = append(detected, "urgent")
	}
	return detected
}

// SituationResponse returns an opener for a detected situation.
func SituationResponse(situation string) string {
	return pick(situationResponses[situation])
}

func pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rand.IntN(len(options))]
}
