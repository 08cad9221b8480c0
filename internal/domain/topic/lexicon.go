package topic

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrGateConfiguration is returned when the gate is built without usable rules.
var ErrGateConfiguration = errors.New("topic gate configuration invalid")

// DefaultRedirectMessage is sent back to the user when a message is off-topic.
const DefaultRedirectMessage = "I'm a specialized medical AI assistant focused on radiology and healthcare topics. " +
	"I can help you with medical questions, radiology image analysis, symptoms discussion, " +
	"and healthcare guidance. How can I assist you with a medical or radiology-related question?"

// Lexicon is the external configuration of a Gate.
type Lexicon struct {
	InDomain    []string `yaml:"in_domain" json:"in_domain"`
	OutOfDomain []string `yaml:"out_of_domain" json:"out_of_domain"`
	Patterns    []string `yaml:"patterns" json:"patterns"`
	MinTokens   int      `yaml:"min_tokens" json:"min_tokens"`
	Redirect    string   `yaml:"redirect_message" json:"redirect_message"`
}

// Validate cek semua list terisi dan threshold positif
func (l Lexicon) Validate() error {
	switch {
	case len(compile(l.InDomain)) == 0:
		return fmt.Errorf("%w: in_domain lexicon is empty", ErrGateConfiguration)
	case len(compile(l.OutOfDomain)) == 0:
		return fmt.Errorf("%w: out_of_domain lexicon is empty", ErrGateConfiguration)
	case len(compile(l.Patterns)) == 0:
		return fmt.Errorf("%w: patterns are empty", ErrGateConfiguration)
	case l.MinTokens <= 0:
		return fmt.Errorf("%w: min_tokens must be positive, got %d", ErrGateConfiguration, l.MinTokens)
	}
	return nil
}

// term is a lexicon entry split into lowercase tokens.
type term struct {
	text   string
	tokens []string
}

func compile(entries []string) []term {
	out := make([]term, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		toks := tokenize(e)
		if len(toks) == 0 {
			continue
		}
		key := strings.Join(toks, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, term{text: key, tokens: toks})
	}
	return out
}

// tokenize lowercases s and splits it into word tokens. Hyphens and
// apostrophes inside a word are kept so "x-ray" stays one token.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// matchIn returns the first term whose tokens appear as a contiguous run in toks.
func matchIn(terms []term, toks []string) (string, bool) {
	for _, t := range terms {
		if containsRun(toks, t.tokens) {
			return t.text, true
		}
	}
	return "", false
}

func containsRun(toks, run []string) bool {
	if len(run) == 0 || len(run) > len(toks) {
		return false
	}
	last := len(run) - 1
	for i := 0; i+len(run) <= len(toks); i++ {
		ok := true
		for j, want := range run {
			got := toks[i+j]
			if j == last {
				ok = got == want || got == want+"s" || got == want+"es"
			} else {
				ok = got == want
			}
			if !ok {
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
