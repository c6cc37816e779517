package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/metrics"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// MaxQuestionLength is measured in characters after trimming.
const MaxQuestionLength = 1000

// ApologyMessage replaces the answer whenever lookup, retrieval or generation fails.
const ApologyMessage = "I apologize, but I encountered an error while processing your question."

var (
	ErrEmptyQuestion   = errors.New("empty question")
	ErrQuestionTooLong = errors.New("question too long")
)

// ValidationError marks a question rejected before any lookup or model call.
// Message is safe to show to the user.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// ValidateQuestion trims q and enforces the length bounds.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", &ValidationError{Err: ErrEmptyQuestion, Message: "Please provide a valid question."}
	}
	if utf8.RuneCountInString(q) > MaxQuestionLength {
		return "", &ValidationError{Err: ErrQuestionTooLong, Message: "Question too long (max 1000 characters)."}
	}
	return q, nil
}

// Answer is the result of a non-streaming question.
type Answer struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"result"`
	Kind      QueryKind `json:"-"`
}

// Orchestrator routes questions to the lead lookup or the retrieval pipeline.
type Orchestrator struct {
	leads     *LeadLookup
	assembler *ContextAssembler
	llm       core.LLMProvider
	sessions  core.SessionStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewOrchestrator(index Searcher, leads core.LeadStore, llm core.LLMProvider, sessions core.SessionStore, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		leads:     NewLeadLookup(leads),
		assembler: NewContextAssembler(index, logger),
		llm:       llm,
		sessions:  sessions,
		metrics:   m,
		logger:    logger,
	}
}

// Answer produces a complete answer and records it in the session history.
// Only validation errors are returned; every other failure becomes ApologyMessage.
func (o *Orchestrator) Answer(ctx context.Context, question string, role models.Role, sessionID string) (Answer, error) {
	q, err := ValidateQuestion(question)
	if err != nil {
		return Answer{}, err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()
	kind := Classify(q)
	text, err := o.respond(ctx, q, kind, role)
	o.observe(kind, start, err)
	if err != nil {
		o.logger.Error("answer failed", "kind", kind.String(), "session_id", sessionID, "error", err)
		text = ApologyMessage
	}

	o.Record(ctx, sessionID, q, text)
	return Answer{SessionID: sessionID, Text: text, Kind: kind}, nil
}

// AnswerStream yields the answer as fragments in generation order. The channel
// closes when the answer is complete or ctx is done. Fragments are not
// recorded; callers decide whether to Record the assembled text.
func (o *Orchestrator) AnswerStream(ctx context.Context, question string, role models.Role) (<-chan string, error) {
	q, err := ValidateQuestion(question)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)

		send := func(s string) bool {
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		start := time.Now()
		kind := Classify(q)

		if kind == Lead {
			text, err := o.leads.Answer(ctx, q)
			o.observe(kind, start, err)
			if err != nil {
				o.logger.Error("lead stream failed", "error", err)
				text = ApologyMessage
			}
			send(text)
			return
		}

		prompt, err := o.generalPrompt(ctx, q, role)
		if err != nil {
			o.observe(kind, start, err)
			o.logger.Error("context assembly failed", "error", err)
			send(ApologyMessage)
			return
		}

		frags, errc := o.llm.Stream(ctx, SystemPrompt, prompt)
		for f := range frags {
			if !send(f) {
				o.observe(kind, start, ctx.Err())
				return
			}
		}
		if err := <-errc; err != nil {
			o.observe(kind, start, err)
			if ctx.Err() != nil {
				return
			}
			o.logger.Error("llm stream failed", "error", err)
			send(ApologyMessage)
			return
		}
		o.observe(kind, start, nil)
	}()
	return out, nil
}

// Record appends a turn to the session history. Store failures are logged.
func (o *Orchestrator) Record(ctx context.Context, sessionID, question, answer string) {
	if o.sessions == nil || sessionID == "" {
		return
	}
	turn := models.Turn{Question: question, Answer: answer, CreatedAt: time.Now().UTC()}
	if err := o.sessions.Append(ctx, sessionID, turn); err != nil {
		o.logger.Warn("session append failed", "session_id", sessionID, "error", err)
	}
}

// History returns the recorded turns of a session.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if o.sessions == nil {
		return nil, nil
	}
	return o.sessions.Get(ctx, sessionID)
}

func (o *Orchestrator) respond(ctx context.Context, q string, kind QueryKind, role models.Role) (string, error) {
	if kind == Lead {
		return o.leads.Answer(ctx, q)
	}

	prompt, err := o.generalPrompt(ctx, q, role)
	if err != nil {
		return "", err
	}
	text, err := o.llm.Generate(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (o *Orchestrator) generalPrompt(ctx context.Context, q string, role models.Role) (string, error) {
	kbContext, err := o.assembler.Assemble(ctx, q, role)
	if err != nil {
		return "", err
	}
	return BuildPrompt(kbContext, q), nil
}

func (o *Orchestrator) observe(kind QueryKind, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.metrics.ObserveQuestion(kind.String(), outcome, time.Since(start))
}
