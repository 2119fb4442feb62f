package mood

import "testing"

func TestLexiconDetect(t *testing.T) {
	lex := DefaultLexicon()

	tests := []struct {
		name      string
		text      string
		wantLabel string
	}{
		{"empty", "", "neutral"},
		{"no emotional content", "what is the capital of Egypt", "neutral"},
		{"joy", "what a wonderful and blessed day full of joy", "joy"},
		{"gratitude", "thank you, I am grateful", "gratitude"},
		{"sadness", "I feel so lonely, full of grief", "sadness"},
		{"anger", "this is unfair, I hate it", "anger"},
		{"fear", "I am afraid and anxious about tomorrow", "fear"},
		{"case insensitive", "WONDERFUL JOY", "joy"},
		{"dominant label wins", "I am happy but also sad, lonely and full of grief", "sadness"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := lex.Detect(tt.text)
			if sig.Label != tt.wantLabel {
				t.Errorf("Detect(%q).Label = %q, want %q", tt.text, sig.Label, tt.wantLabel)
			}
		})
	}
}

func TestLexiconIntensityScalesWithHits(t *testing.T) {
	lex := DefaultLexicon()

	one := lex.Detect("joy")
	three := lex.Detect("joy and peace, how wonderful")

	if one.Intensity >= three.Intensity {
		t.Errorf("intensity did not grow with hits: one=%v three=%v", one.Intensity, three.Intensity)
	}
	if three.Intensity > 1.0 {
		t.Errorf("intensity %v exceeds 1.0", three.Intensity)
	}
}

func TestLexiconNeutralHasZeroWeight(t *testing.T) {
	sig := DefaultLexicon().Detect("plain text without emotion words")
	if sig.Weight != 0 {
		t.Errorf("neutral weight = %v, want 0", sig.Weight)
	}
	if sig.Intensity != 0 {
		t.Errorf("neutral intensity = %v, want 0", sig.Intensity)
	}
}
