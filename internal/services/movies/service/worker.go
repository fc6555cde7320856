package service

import (
	"context"
	"sync"
	"time"

	"helioserve/internal/platform/logger"
	"helioserve/internal/services/movies/domain"

	"golang.org/x/sync/semaphore"
)

// FramesTable is the clickhouse table per frame timings go to
const FramesTable = "movie_frames"

// Run leases and sequences jobs until ctx ends, at most cfg.Workers at a time
// Jobs still running at shutdown are left for their lease to expire so another worker picks them up
func (s *Svc) Run(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	var wg sync.WaitGroup
	defer wg.Wait()

	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()

	logger.C(ctx).Info().
		Str("worker_id", s.workerID).
		Int("workers", s.cfg.Workers).
		Dur("lease_ttl", s.cfg.LeaseTTL).
		Msg("movie worker started")

	for {
		s.poll(ctx, sem, &wg)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-s.wake:
		}
	}
}

func (s *Svc) poll(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup) {
	free := 0
	for sem.TryAcquire(1) {
		free++
	}
	if free == 0 {
		return
	}
	jobs, err := s.store.Lease(ctx, s.workerID, free, s.cfg.LeaseTTL)
	if err != nil {
		if ctx.Err() == nil {
			logger.C(ctx).Warn().Err(err).Msg("lease movie jobs failed")
		}
		sem.Release(int64(free))
		return
	}
	if unused := free - len(jobs); unused > 0 {
		sem.Release(int64(unused))
	}
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			s.execute(ctx, j)
		}()
	}
}

// Drain runs queued jobs one by one in the calling goroutine until none are left
func (s *Svc) Drain(ctx context.Context) error {
	for {
		jobs, err := s.store.Lease(ctx, s.workerID, 1, s.cfg.LeaseTTL)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		s.execute(ctx, jobs[0])
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// execute sequences one leased job and records its terminal state
// the lease is extended from a ticker while the job runs, including the encode step
func (s *Svc) execute(parent context.Context, j domain.Job) {
	ctx, cancel := context.WithCancel(logger.WithJob(parent, j.ID))
	defer cancel()
	log := logger.C(ctx)

	tr := NewTracker(j, time.Now())
	s.mu.Lock()
	s.running[j.ID] = &run{cancel: cancel, tracker: tr}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, j.ID)
		s.mu.Unlock()
	}()

	// beat writes progress and extends the lease, losing the lease stops the run
	var beatMu sync.Mutex
	beat := func(ctx context.Context) {
		beatMu.Lock()
		defer beatMu.Unlock()
		snap := tr.Snapshot()
		ok, err := s.store.Progress(ctx, j.ID, s.workerID, snap.Progress, snap.ETA, snap.Warnings, s.cfg.LeaseTTL)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("movie progress write failed")
			}
			return
		}
		if !ok && ctx.Err() == nil {
			log.Info().Msg("movie is no longer leased here, stopping")
			tr.Finish(domain.StateFailed, "", domain.ErrCancelled)
			cancel()
		}
	}

	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		t := time.NewTicker(max(s.cfg.LeaseTTL/3, time.Millisecond))
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				beat(ctx)
			}
		}
	}()

	var lastWrite time.Time
	seq := &Sequencer{
		Frames:    s.frames,
		Encoder:   s.encoder,
		WorkDir:   s.cfg.WorkDir,
		OutputDir: s.cfg.OutputDir,
		Ext:       s.cfg.Ext,
		Elide:     s.cfg.Elide,
		FrameRate: s.cfg.FrameRate,
		OnFrame: func(ctx context.Context, ev FrameEvent) {
			s.events.Add(ctx,
				time.Now().UTC(),
				j.ID,
				uint32(ev.Index),
				ev.At,
				ev.Outcome,
				uint32(ev.Took.Milliseconds()),
				s.workerID,
			)
			if ev.Progress < j.FrameCount && time.Since(lastWrite) < s.cfg.ProgressEvery {
				return
			}
			lastWrite = time.Now()
			beat(ctx)
		},
	}

	log.Info().Int("frames", j.FrameCount).Dur("cadence", j.Cadence).Msg("movie started")
	start := time.Now()
	res, err := seq.Run(ctx, j, tr)
	stopped := ctx.Err() != nil
	cancel()
	<-hbDone

	switch {
	case err == nil:
		tr.Finish(domain.StateCompleted, res.Output, "")
	case parent.Err() != nil:
		log.Info().Int("progress", tr.Snapshot().Progress).Msg("worker stopping, movie left for its lease to expire")
		return
	case stopped:
		tr.Finish(domain.StateFailed, "", domain.ErrCancelled)
	default:
		tr.Finish(domain.StateFailed, "", err.Error())
	}

	done := tr.Snapshot()
	fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer fcancel()
	if ferr := s.store.Finish(fctx, done); ferr != nil {
		log.Error().Err(ferr).Msg("movie finish write failed")
	}
	log.Info().
		Str("state", string(done.State)).
		Str("error", done.Error).
		Int("written", res.Written).
		Int("warnings", len(done.Warnings)).
		Dur("took", time.Since(start)).
		Str("output", done.Output).
		Msg("movie finished")
}
