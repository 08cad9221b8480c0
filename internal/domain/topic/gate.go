package topic

import "strings"

// Reason explains which rule produced a Verdict.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonOutOfDomain Reason = "out_of_domain_term"
	ReasonInDomain    Reason = "in_domain_term"
	ReasonPattern     Reason = "question_pattern"
	ReasonTooShort    Reason = "pattern_too_short"
	ReasonNoSignal    Reason = "no_signal"
)

// Verdict is the outcome of Gate.Classify.
type Verdict struct {
	InDomain bool   `json:"in_domain"`
	Reason   Reason `json:"reason"`
	Matched  string `json:"matched,omitempty"`
}

// Gate is a heuristic pre-filter deciding whether a message is about
// radiology or healthcare. It is safe for concurrent use.
type Gate struct {
	in        []term
	out       []term
	patterns  []term
	minTokens int
	redirect  string
}

// NewGate validates lex and builds a Gate from it.
func NewGate(lex Lexicon) (*Gate, error) {
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	redirect := strings.TrimSpace(lex.Redirect)
	if redirect == "" {
		redirect = DefaultRedirectMessage
	}
	return &Gate{
		in:        compile(lex.InDomain),
		out:       compile(lex.OutOfDomain),
		patterns:  compile(lex.Patterns),
		minTokens: lex.MinTokens,
		redirect:  redirect,
	}, nil
}

// Classify applies the rules in priority order: out-of-domain terms reject,
// in-domain terms accept, otherwise a question/complaint pattern plus a
// minimum token count is required. Anything else is rejected.
func (g *Gate) Classify(text string) Verdict {
	toks := tokenize(text)
	if len(toks) == 0 {
		return Verdict{Reason: ReasonEmpty}
	}
	if m, ok := matchIn(g.out, toks); ok {
		return Verdict{Reason: ReasonOutOfDomain, Matched: m}
	}
	if m, ok := matchIn(g.in, toks); ok {
		return Verdict{InDomain: true, Reason: ReasonInDomain, Matched: m}
	}
	m, ok := matchIn(g.patterns, toks)
	if !ok {
		return Verdict{Reason: ReasonNoSignal}
	}
	if len(strings.Fields(text)) < g.minTokens {
		return Verdict{Reason: ReasonTooShort, Matched: m}
	}
	return Verdict{InDomain: true, Reason: ReasonPattern, Matched: m}
}

// RedirectMessage is the reply used for off-topic messages.
func (g *Gate) RedirectMessage() string { return g.redirect }
