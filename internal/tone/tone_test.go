package tone

import (
	"strings"
	"testing"
)

func TestDetectKeywordEmotions(t *testing.T) {
	cases := []struct {
		text    string
		emotion string
	}{
		{"This is terrible, I am furious", EmotionAngry},
		{"I'm so frustrated, the form keeps failing", EmotionFrustrated},
		{"sorry, I'm disappointed with the delivery", EmotionSad},
		{"thanks, this is great", EmotionHappy},
		{"I need this urgent, asap please", EmotionAnxious},
	}
	for _, tc := range cases {
		sig := Detect(tc.text)
		if sig.Emotion != tc.emotion {
			t.Errorf("Detect(%q).Emotion = %q, want %q", tc.text, sig.Emotion, tc.emotion)
		}
		if sig.Confidence != 0.85 {
			t.Errorf("Detect(%q).Confidence = %.2f, want 0.85", tc.text, sig.Confidence)
		}
	}
}

func TestDetectNeutral(t *testing.T) {
	sig := Detect("what is the price of servo motors")
	if sig.Emotion != EmotionNeutral {
		t.Fatalf("emotion = %q, want neutral", sig.Emotion)
	}
	if sig.Confidence != 1.0 {
		t.Errorf("confidence = %.2f, want 1.0", sig.Confidence)
	}
	if sig.Intensity != IntensityLow {
		t.Errorf("intensity = %q, want low", sig.Intensity)
	}
}

func TestDetectEmptyText(t *testing.T) {
	sig := Detect("   ")
	if sig.Emotion != EmotionNeutral || sig.Confidence != 1.0 {
		t.Errorf("empty text = %+v, want neutral with confidence 1.0", sig)
	}
}

func TestDetectNegationFlipsValence(t *testing.T) {
	sig := Detect("this is not good")
	if sig.Emotion != EmotionNegative {
		t.Errorf("emotion = %q, want negative", sig.Emotion)
	}
	if sig.Compound >= 0 {
		t.Errorf("compound = %.3f, want negative", sig.Compound)
	}
}

func TestDetectIntensityBands(t *testing.T) {
	high := Detect("terrible awful worst experience")
	if high.Intensity != IntensityHigh {
		t.Errorf("intensity = %q, want high (compound %.3f)", high.Intensity, high.Compound)
	}

	low := Detect("the order arrived yesterday")
	if low.Intensity != IntensityLow {
		t.Errorf("intensity = %q, want low (compound %.3f)", low.Intensity, low.Compound)
	}
}

func TestNeedsEmpathy(t *testing.T) {
	for _, emotion := range []string{EmotionSad, EmotionAngry, EmotionFrustrated, EmotionAnxious, EmotionNegative} {
		if !NeedsEmpathy(emotion) {
			t.Errorf("NeedsEmpathy(%q) = false, want true", emotion)
		}
	}
	for _, emotion := range []string{EmotionNeutral, EmotionPositive, EmotionHappy} {
		if NeedsEmpathy(emotion) {
			t.Errorf("NeedsEmpathy(%q) = true, want false", emotion)
		}
	}
}

func TestEnhanceWrapsWithKnownPhrases(t *testing.T) {
	base := "Your RFQ is in review."
	out := Enhance(base, EmotionAngry, IntensityHigh)

	if !strings.Contains(out, base) {
		t.Fatalf("enhanced response %q lost the base message", out)
	}
	if !hasAnyPrefix(out, empathyPrefixes[EmotionAngry]) {
		t.Errorf("enhanced response %q missing an angry prefix", out)
	}
	if !hasAnySuffix(out, empathySuffixes[EmotionAngry]) {
		t.Errorf("enhanced response %q missing an angry suffix", out)
	}
}

func TestEnhanceLowIntensitySkipsSuffix(t *testing.T) {
	base := "Your RFQ is in review."
	out := Enhance(base, EmotionSad, IntensityLow)
	if !strings.HasSuffix(out, base) {
		t.Errorf("low intensity response %q should end with the base message", out)
	}
}

func TestEnhanceUnknownEmotionFallsBackToNeutral(t *testing.T) {
	base := "Here you go."
	out := Enhance(base, "confused", IntensityLow)
	if !strings.Contains(out, base) {
		t.Errorf("response %q lost the base message", out)
	}
	if !hasAnyPrefix(out, empathyPrefixes[EmotionNeutral]) {
		t.Errorf("response %q should use a neutral prefix", out)
	}
}

func TestDetectSituations(t *testing.T) {
	got := DetectSituations("I've been waiting forever and this is urgent")
	want := []string{"waiting", "urgent"}
	if len(got) != len(want) {
		t.Fatalf("situations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("situations = %v, want %v", got, want)
		}
	}

	if got := DetectSituations("do you sell sensors"); got != nil {
		t.Errorf("expected no situations, got %v", got)
	}
}

func TestEmoji(t *testing.T) {
	if Emoji(EmotionAngry) == Emoji(EmotionHappy) {
		t.Error("expected distinct emoji per emotion")
	}
	if Emoji("unknown") != Emoji(EmotionNeutral) {
		t.Error("unknown emotion should map to the neutral emoji")
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
