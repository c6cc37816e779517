package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/markdave123-py/AmityBot/internal/core/rag"
	"github.com/markdave123-py/AmityBot/internal/models"
	"github.com/markdave123-py/AmityBot/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAnswerer struct {
	mu       sync.Mutex
	text     string
	frags    []string
	roles    []models.Role
	recorded []models.Turn
	history  map[string][]models.Turn
}

func (f *fakeAnswerer) Answer(_ context.Context, q string, role models.Role, sessionID string) (rag.Answer, error) {
	if _, err := rag.ValidateQuestion(q); err != nil {
		return rag.Answer{}, err
	}
	f.mu.Lock()
	f.roles = append(f.roles, role)
	f.mu.Unlock()
	if sessionID == "" {
		sessionID = "generated"
	}
	return rag.Answer{SessionID: sessionID, Text: f.text}, nil
}

func (f *fakeAnswerer) AnswerStream(ctx context.Context, q string, role models.Role) (<-chan string, error) {
	if _, err := rag.ValidateQuestion(q); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.roles = append(f.roles, role)
	f.mu.Unlock()
	out := make(chan string)
	go func() {
		defer close(out)
		for _, s := range f.frags {
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeAnswerer) Record(_ context.Context, sessionID, question, answer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, models.Turn{Question: question, Answer: answer})
	if f.history == nil {
		f.history = map[string][]models.Turn{}
	}
	f.history[sessionID] = append(f.history[sessionID], models.Turn{Question: question, Answer: answer})
}

func (f *fakeAnswerer) History(_ context.Context, sessionID string) ([]models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[sessionID], nil
}

type fakeUploader struct {
	res     *services.UploadResult
	err     error
	name    string
	data    []byte
	deleted []string
}

func (f *fakeUploader) Upload(_ context.Context, fileName, _ string, data []byte) (*services.UploadResult, error) {
	f.name, f.data = fileName, data
	return f.res, f.err
}

func (f *fakeUploader) Delete(_ context.Context, storedName string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, storedName)
	return nil
}

type fakeReindexer struct {
	report models.IngestReport
	err    error
}

func (f fakeReindexer) Reindex(context.Context) (models.IngestReport, error) {
	return f.report, f.err
}

var errBoom = errors.New("boom")
