package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks for one certificate to be analyzed.
type Job struct {
	OwnerID       string
	CertificateID string
	Locator       string
	SubmittedAt   time.Time
	TraceID       string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
