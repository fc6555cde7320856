// Package repo provides movie job persistence: postgres with leases and an in-memory variant
package repo

import (
	"context"
	"encoding/json"
	"time"

	"helioserve/internal/modkit/repokit"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/store"
	"helioserve/internal/services/movies/domain"

	"github.com/google/uuid"
)

// Repo is the movie job persistence surface
type Repo interface{ domain.Store }

type (
	// PG is a Postgres implementation of the movie job repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const jobCols = `id::text, request, state, frame_count, cadence_seconds, progress, eta_seconds,
	warnings, error, output, COALESCE(leased_by, ''), lease_expires_at,
	created_at, updated_at, started_at, finished_at`

func scanJob(r store.Row) (domain.Job, error) {
	var (
		j             domain.Job
		req, warnings []byte
		state         string
		cadence, etaS int64
	)
	if err := r.Scan(
		&j.ID, &req, &state, &j.FrameCount, &cadence, &j.Progress, &etaS,
		&warnings, &j.Error, &j.Output, &j.LeasedBy, &j.LeaseExpiresAt,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.FinishedAt,
	); err != nil {
		return j, err
	}
	if err := json.Unmarshal(req, &j.Request); err != nil {
		return j, perr.Wrapf(err, perr.ErrorCodeJSON, "movie job %s request", j.ID)
	}
	if err := json.Unmarshal(warnings, &j.Warnings); err != nil {
		return j, perr.Wrapf(err, perr.ErrorCodeJSON, "movie job %s warnings", j.ID)
	}
	j.State = domain.State(state)
	j.Cadence = time.Duration(cadence) * time.Second
	j.ETA = time.Duration(etaS) * time.Second
	return j, nil
}

func warningsJSON(ws []domain.Warning) (string, error) {
	if ws == nil {
		ws = []domain.Warning{}
	}
	b, err := json.Marshal(ws)
	return string(b), err
}

func (r *queries) Create(ctx context.Context, j domain.Job) error {
	req, err := json.Marshal(j.Request)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode movie request")
	}
	warnings, err := warningsJSON(j.Warnings)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode movie warnings")
	}
	const sql = `
		INSERT INTO movie_jobs (id, request, state, frame_count, cadence_seconds, warnings)
		VALUES ($1::uuid, $2::jsonb, 'queued', $3, $4, $5::jsonb)
	`
	if _, err := r.q.Exec(ctx, sql, j.ID, string(req), j.FrameCount, int64(j.Cadence/time.Second), warnings); err != nil {
		return perr.FromPostgresf(err, "create movie job %s", j.ID)
	}
	return nil
}

func (r *queries) Get(ctx context.Context, id string) (domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Job{}, perr.NotFoundf("movie job %s not found", id)
	}
	j, err := store.One(ctx, r.q, scanJob, `SELECT `+jobCols+` FROM movie_jobs WHERE id = $1::uuid`, id)
	if perr.Is(err, perr.ErrNotFound) {
		return j, perr.NotFoundf("movie job %s not found", id)
	}
	if err != nil {
		return j, perr.FromPostgresf(err, "load movie job %s", id)
	}
	return j, nil
}

// Lease claims jobs oldest first, skipping rows another worker has locked
func (r *queries) Lease(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Job, error) {
	if workerID == "" {
		workerID = uuid.NewString()
	}
	const sql = `
		WITH ready AS (
			SELECT id
			  FROM movie_jobs
			 WHERE state = 'queued'
			    OR (state = 'running' AND lease_expires_at <= now())
			 ORDER BY created_at ASC
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED
		), upd AS (
			UPDATE movie_jobs j
			   SET state            = 'running',
			       leased_by        = $2,
			       lease_expires_at = now() + make_interval(secs => $3),
			       started_at       = COALESCE(j.started_at, now()),
			       updated_at       = now()
			 WHERE j.id IN (SELECT id FROM ready)
			RETURNING j.*
		)
		SELECT ` + jobCols + ` FROM upd ORDER BY created_at ASC
	`
	out, err := store.Many(ctx, r.q, scanJob, sql, limit, workerID, leaseFor.Seconds())
	if err != nil {
		return nil, perr.FromPostgres(err, "lease movie jobs")
	}
	return out, nil
}

func (r *queries) Progress(ctx context.Context, id, workerID string, progress int, eta time.Duration, warnings []domain.Warning, leaseFor time.Duration) (bool, error) {
	ws, err := warningsJSON(warnings)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeJSON, "encode movie warnings")
	}
	const sql = `
		UPDATE movie_jobs
		   SET progress         = $2,
		       eta_seconds      = $3,
		       warnings         = $4::jsonb,
		       lease_expires_at = now() + make_interval(secs => $5),
		       updated_at       = now()
		 WHERE id = $1::uuid AND state = 'running' AND leased_by = $6
	`
	tag, err := r.q.Exec(ctx, sql, id, progress, int64(eta/time.Second), ws, leaseFor.Seconds(), workerID)
	if err != nil {
		return false, perr.FromPostgresf(err, "progress movie job %s", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Finish(ctx context.Context, j domain.Job) error {
	ws, err := warningsJSON(j.Warnings)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode movie warnings")
	}
	const sql = `
		UPDATE movie_jobs
		   SET state            = $2,
		       progress         = $3,
		       eta_seconds      = 0,
		       warnings         = $4::jsonb,
		       error            = $5,
		       output           = $6,
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       finished_at      = now(),
		       updated_at       = now()
		 WHERE id = $1::uuid AND state = 'running' AND leased_by = $7
	`
	if _, err := r.q.Exec(ctx, sql, j.ID, string(j.State), j.Progress, ws, j.Error, j.Output, j.LeasedBy); err != nil {
		return perr.FromPostgresf(err, "finish movie job %s", j.ID)
	}
	return nil
}

func (r *queries) Cancel(ctx context.Context, id string) (domain.Job, error) {
	const sql = `
		UPDATE movie_jobs
		   SET state            = 'failed',
		       error            = $2,
		       eta_seconds      = 0,
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       finished_at      = now(),
		       updated_at       = now()
		 WHERE id = $1::uuid AND state IN ('queued', 'running')
		RETURNING ` + jobCols
	if _, err := uuid.Parse(id); err != nil {
		return domain.Job{}, perr.NotFoundf("movie job %s not found", id)
	}
	j, err := store.One(ctx, r.q, scanJob, sql, id, domain.ErrCancelled)
	if err == nil {
		return j, nil
	}
	if !perr.Is(err, perr.ErrNotFound) {
		return j, perr.FromPostgresf(err, "cancel movie job %s", id)
	}
	cur, err := r.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	return cur, perr.Conflictf("movie job %s is already %s", id, cur.State)
}
