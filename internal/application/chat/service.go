// Package chat implements the medical assistant conversation use-cases.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/topic"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	domain "github.com/bryanwahyu/radiology-ai/internal/domain/chat"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

const (
	defaultHistoryWindow = 5

	KindAnswer   = "answer"
	KindRedirect = "redirect"
	KindApology  = "apology"

	ApologyMessage = "I apologize, but I'm experiencing technical difficulties. Please try again later or contact support for assistance."
)

// Recorder receives reply kinds. metrics.Manager implements it.
type Recorder interface {
	ChatReply(kind string)
}

// Service is safe for concurrent use.
type Service struct {
	Repo      domain.Repository
	Scans     scans.Repository
	Topic     *topic.Service
	Generator ai.Generator
	Clock     application.Clock
	Log       logging.Logger
	Metrics   Recorder

	// HistoryWindow is how many earlier messages go into the prompt.
	HistoryWindow int
	Timeout       time.Duration
}

type SendCommand struct {
	Principal application.Principal
	SessionID domain.SessionID
	Message   string
	// ScanID switches to scan-context chat.
	ScanID scans.ScanID
}

type Reply struct {
	SessionID domain.SessionID `json:"session_id"`
	Kind      string           `json:"kind"`
	Message   *domain.Message  `json:"message"`
	Topic     *topic.Decision  `json:"topic,omitempty"`
}

// Send stores the user's message, produces a reply and stores it too.
//
// Plain chat goes through the topic decision and off-topic messages get the
// redirect text without a model call. Scan chat only logs the gate verdict:
// the scan itself puts the question in domain. A generator failure never
// fails the request; the reply degrades to an apology.
func (s *Service) Send(ctx context.Context, cmd SendCommand) (Reply, error) {
	text := strings.TrimSpace(cmd.Message)
	if text == "" {
		return Reply{}, domain.ErrEmptyMessage
	}

	var scan *scans.Scan
	if cmd.ScanID != "" {
		var err error
		scan, err = s.Scans.GetByID(ctx, cmd.ScanID)
		if err != nil {
			return Reply{}, err
		}
		if !cmd.Principal.CanAccessPatient(scan.PatientID) {
			return Reply{}, domain.ErrForbidden
		}
	}

	session, err := s.session(ctx, cmd.Principal.Subject, cmd.SessionID)
	if err != nil {
		return Reply{}, err
	}
	log := s.log().With(logging.String("session_id", string(session.ID)), logging.String("subject", cmd.Principal.Subject))

	history, err := s.Repo.Messages(ctx, session.ID, s.historyWindow())
	if err != nil {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}

	userMsg := s.newMessage(session.ID, domain.SenderUser, text, cmd.ScanID)
	if err := s.Repo.AppendMessage(ctx, userMsg); err != nil {
		return Reply{}, fmt.Errorf("save message: %w", err)
	}

	reply := Reply{SessionID: session.ID}
	var body string
	if scan != nil {
		s.Topic.Classify(text)
		body, reply.Kind = s.generate(ctx, log, prompt.ScanChat(text, scanInfo(scan), turns(history)))
	} else {
		d := s.Topic.Decide(ctx, text)
		reply.Topic = &d
		if d.Allowed {
			body, reply.Kind = s.generate(ctx, log, prompt.Chat(text, turns(history)))
		} else {
			body, reply.Kind = d.Redirect, KindRedirect
		}
	}

	reply.Message = s.newMessage(session.ID, domain.SenderAI, body, cmd.ScanID)
	// balasan tetap disimpan walau client sudah putus
	if err := s.Repo.AppendMessage(context.WithoutCancel(ctx), reply.Message); err != nil {
		return Reply{}, fmt.Errorf("save reply: %w", err)
	}
	if s.Metrics != nil {
		s.Metrics.ChatReply(reply.Kind)
	}
	log.Info("chat reply stored", logging.String("kind", reply.Kind), logging.String("scan_id", string(cmd.ScanID)))
	return reply, nil
}

// Messages lists a session owned by the principal, oldest first.
func (s *Service) Messages(ctx context.Context, p application.Principal, id domain.SessionID) ([]*domain.Message, error) {
	if _, err := s.Repo.GetSession(ctx, p.Subject, id); err != nil {
		return nil, err
	}
	return s.Repo.Messages(ctx, id, 0)
}

// Sessions lists the principal's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, p application.Principal, limit int) ([]*domain.Session, error) {
	return s.Repo.ListSessions(ctx, p.Subject, limit)
}

// session returns the owner's session or starts a new one when id is empty
// or unknown.
func (s *Service) session(ctx context.Context, owner string, id domain.SessionID) (*domain.Session, error) {
	if id != "" {
		sess, err := s.Repo.GetSession(ctx, owner, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}
	sess := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		OwnerID:   owner,
		StartedAt: s.now(),
	}
	if err := s.Repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log().Info("chat session created", logging.String("session_id", string(sess.ID)), logging.String("subject", owner))
	return sess, nil
}

func (s *Service) generate(ctx context.Context, log logging.Logger, p string) (string, string) {
	ctx, cancel := application.WithTimeout(ctx, s.Timeout)
	defer cancel()
	out, err := s.Generator.Generate(ctx, p)
	if err == nil {
		out = strings.TrimSpace(out)
	}
	if err != nil || out == "" {
		if err == nil {
			err = errors.New("empty reply")
		}
		log.Error("chat generation failed", logging.Err(err))
		return ApologyMessage, KindApology
	}
	return out, KindAnswer
}

func (s *Service) newMessage(sid domain.SessionID, from domain.Sender, body string, scanID scans.ScanID) *domain.Message {
	return &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sid,
		Sender:    from,
		Body:      body,
		ScanID:    string(scanID),
		CreatedAt: s.now(),
	}
}

func turns(msgs []*domain.Message) []prompt.Turn {
	out := make([]prompt.Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, prompt.Turn{Sender: string(m.Sender), Body: m.Body})
	}
	return out
}

func scanInfo(s *scans.Scan) prompt.ScanInfo {
	info := prompt.ScanInfo{
		ID:          string(s.ID),
		Modality:    string(s.Modality),
		UploadedAt:  s.UploadedAt.Format(time.DateOnly),
		Description: s.Description,
		Analyzed:    s.Analyzed(),
	}
	if f := s.Finding; f != nil {
		info.Classification = f.Classification
		info.RiskLevel = string(f.Risk)
		info.Explanation = f.Explanation
		if f.Confidence != nil {
			info.Confidence = *f.Confidence
		}
		for _, a := range f.Abnormalities {
			info.Abnormalities = append(info.Abnormalities, describe(a))
		}
	}
	return info
}

func describe(a scans.Abnormality) string {
	label := a.Type
	if label == "" {
		label = a.Description
	}
	var extra []string
	if a.Location != "" {
		extra = append(extra, a.Location)
	}
	if a.Severity != "" {
		extra = append(extra, a.Severity)
	}
	if len(extra) == 0 {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, strings.Join(extra, ", "))
}

func (s *Service) historyWindow() int {
	if s.HistoryWindow > 0 {
		return s.HistoryWindow
	}
	return defaultHistoryWindow
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) log() logging.Logger {
	if s.Log == nil {
		return logging.Default()
	}
	return s.Log
}
