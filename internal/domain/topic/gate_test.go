package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLexicon() Lexicon {
	return Lexicon{
		InDomain:    []string{"x-ray", "ct", "scan", "pain", "chest", "lung", "doctor", "fracture"},
		OutOfDomain: []string{"weather", "ai", "machine learning", "programming", "social media"},
		Patterns:    []string{"what is", "i have", "i feel", "my", "hurts"},
		MinTokens:   3,
	}
}

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(testLexicon())
	require.NoError(t, err)
	return g
}

func TestGate_Classify(t *testing.T) {
	g := newTestGate(t)

	tests := []struct {
		name    string
		text    string
		in      bool
		reason  Reason
		matched string
	}{
		{"in-domain term", "What causes chest pain?", true, ReasonInDomain, "pain"},
		{"out-of-domain has priority", "What is machine learning?", false, ReasonOutOfDomain, "machine learning"},
		{"out-of-domain beats in-domain", "Can AI read my chest x-ray?", false, ReasonOutOfDomain, "ai"},
		{"pattern with enough tokens", "My knee hurts badly", true, ReasonPattern, "my"},
		{"pattern too short", "I feel", false, ReasonTooShort, "i feel"},
		{"no signal", "hello there friend", false, ReasonNoSignal, ""},
		{"empty", "", false, ReasonEmpty, ""},
		{"punctuation only", "?!...", false, ReasonEmpty, ""},
		{"hyphenated term", "is this X-Ray fine", true, ReasonInDomain, "x-ray"},
		{"plural form", "are both lungs clear", true, ReasonInDomain, "lung"},
		{"short term not inside words", "contract negotiation tips", false, ReasonNoSignal, ""},
		{"multi word out-of-domain", "best Social Media apps", false, ReasonOutOfDomain, "social media"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Classify(tt.text)
			assert.Equal(t, tt.in, v.InDomain)
			assert.Equal(t, tt.reason, v.Reason)
			if tt.matched != "" {
				assert.Equal(t, tt.matched, v.Matched)
			}
		})
	}
}

func TestGate_InDomainTermMatchOrder(t *testing.T) {
	g := newTestGate(t)

	// "ai" must not match inside "pain" or "again".
	v := g.Classify("pain again today")
	assert.True(t, v.InDomain)
	assert.Equal(t, "pain", v.Matched)
}

func TestGate_AlternateLexicon(t *testing.T) {
	g, err := NewGate(Lexicon{
		InDomain:    []string{"sakit", "rontgen"},
		OutOfDomain: []string{"cuaca"},
		Patterns:    []string{"apa itu"},
		MinTokens:   2,
		Redirect:    "Silakan tanya soal kesehatan.",
	})
	require.NoError(t, err)

	assert.True(t, g.Classify("hasil rontgen saya").InDomain)
	assert.False(t, g.Classify("cuaca hari ini").InDomain)
	assert.True(t, g.Classify("apa itu paru").InDomain)
	assert.False(t, g.Classify("What causes chest pain?").InDomain)
	assert.Equal(t, "Silakan tanya soal kesehatan.", g.RedirectMessage())
}

func TestGate_DefaultRedirect(t *testing.T) {
	g := newTestGate(t)
	assert.Equal(t, DefaultRedirectMessage, g.RedirectMessage())
}

func TestNewGate_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Lexicon)
	}{
		{"missing in-domain", func(l *Lexicon) { l.InDomain = nil }},
		{"blank in-domain", func(l *Lexicon) { l.InDomain = []string{"  ", "!!"} }},
		{"missing out-of-domain", func(l *Lexicon) { l.OutOfDomain = nil }},
		{"missing patterns", func(l *Lexicon) { l.Patterns = []string{} }},
		{"zero min tokens", func(l *Lexicon) { l.MinTokens = 0 }},
		{"negative min tokens", func(l *Lexicon) { l.MinTokens = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := testLexicon()
			tt.mutate(&lex)
			g, err := NewGate(lex)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrGateConfiguration)
		})
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"what's", "my", "x-ray", "result"}, tokenize("What's my X-ray result?"))
	assert.Equal(t, []string{"pain"}, tokenize(" -- pain -- "))
	assert.Empty(t, tokenize(""))
}
