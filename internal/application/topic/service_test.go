package topic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/radiology-ai/internal/domain/topic"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	return g.reply, g.err
}

type blockingGenerator struct{ hadDeadline bool }

func (g *blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	_, g.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return "", ctx.Err()
}

type verdictRecorder struct{ reasons []string }

func (r *verdictRecorder) TopicVerdict(_ bool, reason string) { r.reasons = append(r.reasons, reason) }

func newService(t *testing.T, gen *stubGenerator, modelCheck bool) (*Service, *verdictRecorder) {
	t.Helper()
	gate, err := domain.NewGate(domain.Lexicon{
		InDomain:    []string{"pain", "chest", "x-ray"},
		OutOfDomain: []string{"machine learning", "weather"},
		Patterns:    []string{"what is", "i have"},
		MinTokens:   3,
	})
	require.NoError(t, err)
	rec := &verdictRecorder{}
	s := &Service{Gate: gate, ModelCheck: modelCheck, Log: logging.NewNopLogger(), Metrics: rec}
	if gen != nil {
		s.Generator = gen
	}
	return s, rec
}

func TestDecide_GateOnly(t *testing.T) {
	s, rec := newService(t, nil, false)

	d := s.Decide(context.Background(), "What causes chest pain?")
	assert.True(t, d.Allowed)
	assert.False(t, d.ModelChecked)
	assert.Empty(t, d.Redirect)

	d = s.Decide(context.Background(), "What is machine learning?")
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.ReasonOutOfDomain, d.Gate.Reason)
	assert.Equal(t, domain.DefaultRedirectMessage, d.Redirect)

	assert.Equal(t, []string{"in_domain_term", "out_of_domain_term"}, rec.reasons)
}

func TestDecide_ModelOverridesGate(t *testing.T) {
	gen := &stubGenerator{reply: "RELEVANT"}
	s, rec := newService(t, gen, true)

	d := s.Decide(context.Background(), "What is the weather doing to my joints?")

	assert.True(t, d.Allowed)
	assert.True(t, d.ModelChecked)
	assert.False(t, d.Gate.InDomain)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "What is the weather doing to my joints?")
	// gate verdict still recorded
	assert.Equal(t, []string{"out_of_domain_term"}, rec.reasons)
}

func TestDecide_ModelRejects(t *testing.T) {
	s, _ := newService(t, &stubGenerator{reply: "NOT_RELEVANT"}, true)

	d := s.Decide(context.Background(), "I have chest pain")

	assert.False(t, d.Allowed)
	assert.True(t, d.Gate.InDomain)
	assert.NotEmpty(t, d.Redirect)
}

func TestDecide_ModelErrorFallsBackToGate(t *testing.T) {
	s, _ := newService(t, &stubGenerator{err: errors.New("quota")}, true)

	d := s.Decide(context.Background(), "I have chest pain")

	assert.True(t, d.Allowed)
	assert.False(t, d.ModelChecked)
}

func TestDecide_EmptySkipsModel(t *testing.T) {
	gen := &stubGenerator{reply: "RELEVANT"}
	s, _ := newService(t, gen, true)

	d := s.Decide(context.Background(), "   ")

	assert.False(t, d.Allowed)
	assert.Empty(t, gen.prompts)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ab...", preview("abcdef", 2))
	assert.Equal(t, "dé...", preview("déjà vu", 2))
}

func TestDecide_ModelCheckTimeout(t *testing.T) {
	s, _ := newService(t, nil, true)
	gen := &blockingGenerator{}
	s.Generator = gen
	s.Timeout = 20 * time.Millisecond

	start := time.Now()
	d := s.Decide(context.Background(), "What causes chest pain?")

	assert.True(t, gen.hadDeadline)
	assert.False(t, d.ModelChecked)
	assert.True(t, d.Allowed, "gate verdict is used when the model check times out")
	assert.Less(t, time.Since(start), 2*time.Second)
}
