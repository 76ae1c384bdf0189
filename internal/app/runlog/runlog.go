package runlog

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/storage"
)

// Entry is the outcome of a single compile or execute call.
type Entry struct {
	Kind         model.RunKind
	Code         string
	Success      bool
	ErrorMessage string
	RequestID    string
	StartedAt    time.Time
	Duration     time.Duration
}

// Recorder stores run audit records. A nil repository disables it.
type Recorder struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

// Record stores the entry as a run. Persistence failures are only logged,
// they never change the result returned to the caller.
func (r Recorder) Record(ctx context.Context, e Entry) {
	if r.Repository == nil {
		return
	}

	logger := r.Logger
	if logger == nil {
		logger = log.Noop
	}

	run := model.Run{
		ID:           ulid.MustNew(ulid.Timestamp(e.StartedAt), rand.Reader).String(),
		Kind:         e.Kind,
		CodeHash:     model.SourceHash(e.Code),
		CodeSize:     len(e.Code),
		Success:      e.Success,
		Duration:     e.Duration,
		ErrorMessage: e.ErrorMessage,
		RequestID:    e.RequestID,
		CreatedAt:    e.StartedAt.UTC(),
	}

	// The run is stored even if the request was cancelled meanwhile.
	if err := r.Repository.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warningf("could not store run: %s", err)
		return
	}

	logger.Debugf("run %s stored", run.ID)
}
