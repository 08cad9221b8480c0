// Package topic decides whether a chat message may be forwarded to the model.
package topic

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	domain "github.com/bryanwahyu/radiology-ai/internal/domain/topic"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

// Recorder receives gate verdicts. metrics.Manager implements it.
type Recorder interface {
	TopicVerdict(inDomain bool, reason string)
}

// Decision is the final routing decision for one message.
type Decision struct {
	Allowed bool           `json:"allowed"`
	Gate    domain.Verdict `json:"gate"`
	// ModelChecked is true when the model double-check produced the decision.
	ModelChecked bool   `json:"model_checked"`
	Redirect     string `json:"redirect,omitempty"`
}

// Service wraps the lexicon gate and the optional model double-check.
//
// The gate is advisory when ModelCheck is on: its verdict is always logged
// and recorded, but the model decides. With ModelCheck off the gate decides.
type Service struct {
	Gate       *domain.Gate
	Generator  ai.Generator
	ModelCheck bool
	Log        logging.Logger
	Metrics    Recorder

	// Timeout bounds the model double-check; zero means no timeout.
	Timeout time.Duration
}

// Classify runs only the lexicon gate.
func (s *Service) Classify(text string) domain.Verdict {
	v := s.Gate.Classify(text)
	s.record(v, text)
	return v
}

// Decide runs the gate and, when enabled, the model double-check. A failed
// model check falls back to the gate verdict.
func (s *Service) Decide(ctx context.Context, text string) Decision {
	v := s.Classify(text)
	d := Decision{Allowed: v.InDomain, Gate: v}

	if s.ModelCheck && s.Generator != nil && v.Reason != domain.ReasonEmpty {
		cctx, cancel := application.WithTimeout(ctx, s.Timeout)
		reply, err := s.Generator.Generate(cctx, prompt.TopicCheck(text))
		cancel()
		if err != nil {
			s.log().Warn("model topic check failed, using gate verdict", logging.Err(err))
		} else {
			d.Allowed = prompt.IsRelevant(reply)
			d.ModelChecked = true
			if d.Allowed != v.InDomain {
				s.log().Info("model topic check overrides gate",
					logging.Bool("gate_in_domain", v.InDomain),
					logging.Bool("model_relevant", d.Allowed),
				)
			}
		}
	}

	if !d.Allowed {
		d.Redirect = s.Gate.RedirectMessage()
	}
	return d
}

func (s *Service) record(v domain.Verdict, text string) {
	s.log().Info("topic gate verdict",
		logging.Bool("in_domain", v.InDomain),
		logging.String("reason", string(v.Reason)),
		logging.String("matched", v.Matched),
		logging.String("message", preview(text, 50)),
	)
	if s.Metrics != nil {
		s.Metrics.TopicVerdict(v.InDomain, string(v.Reason))
	}
}

func (s *Service) log() logging.Logger {
	if s.Log == nil {
		return logging.Default()
	}
	return s.Log
}

// preview potong teks untuk log
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
