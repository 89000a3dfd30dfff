package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

type fakeAnalyzer struct {
	calls   atomic.Int32
	block   chan struct{}
	failFor string
}

func (f *fakeAnalyzer) AnalyzeOne(ctx context.Context, ownerID, certificateID, _ string) (*entity.EnrichedRecord, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if certificateID == f.failFor {
		return nil, errors.New("download failed")
	}
	return &entity.EnrichedRecord{
		CandidateRecord: entity.CandidateRecord{OwnerID: ownerID, CertificateID: certificateID},
		Verdict:         entity.Verdict{Status: constants.StatusVerified},
	}, nil
}

type results struct {
	mu   sync.Mutex
	jobs map[string]error
}

func (r *results) record(job Job, _ *entity.EnrichedRecord, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.CertificateID] = err
}

func TestAnalysisQueue_ProcessesAndDrains(t *testing.T) {
	a := &fakeAnalyzer{failFor: "c2"}
	res := &results{jobs: map[string]error{}}
	q := NewAnalysisQueue(a, nil, WithWorkers(2), WithQueueSize(4), WithResultFunc(res.record))

	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{OwnerID: "tutor-1", CertificateID: id}))
	}
	q.Shutdown(context.Background())

	assert.EqualValues(t, 3, a.calls.Load())
	require.Len(t, res.jobs, 3)
	assert.NoError(t, res.jobs["c1"])
	assert.Error(t, res.jobs["c2"])
	assert.NoError(t, res.jobs["c3"])
}

func TestAnalysisQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewAnalysisQueue(&fakeAnalyzer{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{CertificateID: "c1"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestAnalysisQueue_FullQueueHonorsContext(t *testing.T) {
	a := &fakeAnalyzer{block: make(chan struct{})}
	q := NewAnalysisQueue(a, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(a.block)
		q.Shutdown(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), Job{CertificateID: "running"}))
	require.Eventually(t, func() bool { return a.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{CertificateID: "buffered"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{CertificateID: "rejected"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalysisQueue_ProcessTimeout(t *testing.T) {
	a := &fakeAnalyzer{block: make(chan struct{})}
	res := &results{jobs: map[string]error{}}
	q := NewAnalysisQueue(a, nil, WithWorkers(1), WithProcessTimeout(10*time.Millisecond), WithResultFunc(res.record))

	require.NoError(t, q.Enqueue(context.Background(), Job{CertificateID: "slow"}))
	q.Shutdown(context.Background())

	assert.ErrorIs(t, res.jobs["slow"], context.DeadlineExceeded)
}
