// Package syncer finishes settlements left pending by a failed request.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"camptrade/internal/app/logger"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
)

const (
	defaultFetchInterval = 30 * time.Second
	defaultRetryDelay    = time.Second
	defaultJobTimeout    = 30 * time.Second
	defaultBatchSize     = 100
)

type Job func() error

type Settler interface {
	Settle(ctx context.Context, s *model.Settlement) (*model.SettlementResult, error)
}

type Service struct {
	mu       sync.Mutex
	inflight map[string]struct{}

	logger      logger.Logger
	settlements storage.SettlementRepository
	settler     Settler

	jobs     chan Job
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	fetchInterval time.Duration
	retryDelay    time.Duration
	jobTimeout    time.Duration
	batchSize     int
	now           func() time.Time
}

func (s *Service) LoggerComponent() string {
	return "SettlementSync.Service"
}

type Option func(*Service)

func WithFetchInterval(d time.Duration) Option {
	return func(s *Service) {
		s.fetchInterval = d
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

func WithBatchSize(n int) Option {
	return func(s *Service) {
		s.batchSize = n
	}
}

func New(settlements storage.SettlementRepository, settler Settler, opts ...Option) *Service {
	s := &Service{
		inflight:      make(map[string]struct{}),
		settlements:   settlements,
		settler:       settler,
		jobs:          make(chan Job),
		stopCh:        make(chan struct{}),
		fetchInterval: defaultFetchInterval,
		retryDelay:    defaultRetryDelay,
		jobTimeout:    defaultJobTimeout,
		batchSize:     defaultBatchSize,
		now:           time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	s.logger = logger.Global().Component(s)

	return s
}

// Start runs numWorkers settlement workers and the periodic pending scan.
func (s *Service) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		s.wg.Add(1)
		go func(workerID int, l logger.Logger) {
			defer s.wg.Done()
			for {
				select {
				case <-s.stopCh:
					return
				case job := <-s.jobs:
					id := uuid.New()
					ll := l.With().Int("worker_id", workerID).Str("job_id", id.String()).Logger()
					ll.Debug().Msg("Running job")
					if err := job(); err != nil {
						ll.Error().Err(err).Msg("Job failed")
						s.retry(job)
						continue
					}
					ll.Debug().Msg("Job done")
				}
			}
		}(i, s.logger)
	}

	s.wg.Add(1)
	go func(l logger.Logger) {
		defer s.wg.Done()
		t := time.NewTicker(s.fetchInterval)
		defer t.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-t.C:
				if _, err := s.Sweep(context.Background()); err != nil {
					l.Error().Err(err).Msg("Pending settlements fetch failed")
				}
			}
		}
	}(s.logger)
}

func (s *Service) Stop() {
	s.logger.Debug().Msg("Service shutdown")
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Run hands the job to a worker. It returns false once the service is stopped.
func (s *Service) Run(job Job) bool {
	select {
	case s.jobs <- job:
		return true
	case <-s.stopCh:
		return false
	}
}

func (s *Service) retry(job Job) {
	go func() {
		select {
		case <-time.After(s.retryDelay):
			s.logger.Debug().Msg("Retrying job")
			s.Run(job)
		case <-s.stopCh:
		}
	}()
}

// Sweep enqueues settlements that have been pending for longer than the fetch interval.
// Settlements younger than that are most likely still being settled by the request that completed them.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	pending, err := s.settlements.Pending(ctx, s.now().Add(-s.fetchInterval), s.batchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, st := range pending {
		if !s.claim(st.TransactionID) {
			continue
		}
		if !s.Run(s.SettleJob(st)) {
			s.release(st.TransactionID)
			break
		}
		queued++
	}

	if queued > 0 {
		s.logger.Info().Int("count", queued).Msg("Pending settlements queued")
	}

	return queued, nil
}

func (s *Service) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, id)
}

func (s *Service) SettleJob(st *model.Settlement) Job {
	return func() error {
		l := s.logger.With().Str("transaction_id", st.TransactionID).Logger()
		l.Debug().Msg("Settling")

		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		ctx = l.WithContext(ctx)

		now := time.Now()
		if _, err := s.settler.Settle(ctx, st); err != nil {
			return err
		}
		s.release(st.TransactionID)

		l.Info().Dur("duration", time.Since(now)).Msg("Pending settlement done")

		return nil
	}
}
