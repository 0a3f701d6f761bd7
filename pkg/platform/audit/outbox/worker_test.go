package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "govportal/pkg/domain"
	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/audit/store/memory"
	"govportal/pkg/platform/tx"
)

type fakeProducer struct {
	mu      sync.Mutex
	keys    []string
	headers []map[string]string
	failAt  int
}

func (p *fakeProducer) Publish(_ context.Context, key string, _ []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && len(p.keys)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	p.headers = append(p.headers, headers)
	return nil
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

type WorkerSuite struct {
	suite.Suite
	store    *memory.InMemoryStore
	producer *fakeProducer
	worker   *Worker
	userID   id.UserID
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.producer = &fakeProducer{}
	s.worker = NewWorker(s.store, s.producer, tx.NewLocal(), slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithBatchSize(2), WithInterval(10*time.Millisecond))
	s.userID = id.NewUserID()
}

func (s *WorkerSuite) append(n int) {
	for range n {
		s.Require().NoError(s.store.Append(context.Background(), audit.Event{
			UserID:    s.userID,
			Action:    string(audit.EventApplicationSubmitted),
			Timestamp: time.Now(),
		}))
	}
}

func (s *WorkerSuite) TestProcessBatchPublishesAndMarks() {
	s.append(3)

	n, err := s.worker.ProcessBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(1, s.store.Pending())

	n, err = s.worker.ProcessBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(0, s.store.Pending())

	s.Equal(3, s.producer.count())
	s.Equal(s.userID.String(), s.producer.keys[0])
	s.Equal(string(audit.EventApplicationSubmitted), s.producer.headers[0]["event_type"])
}

func (s *WorkerSuite) TestProcessBatchStopsAtFirstFailure() {
	s.append(2)
	s.producer.failAt = 2

	_, err := s.worker.ProcessBatch(context.Background())
	s.Require().Error(err)
	// The memory source has no rollback, so the acknowledged entry stays marked.
	s.Equal(1, s.store.Pending())
}

func (s *WorkerSuite) TestRunDrainsUntilCancelled() {
	s.append(5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx) }()

	s.Eventually(func() bool { return s.store.Pending() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	s.NoError(<-done)
	s.Equal(5, s.producer.count())
}
