package repos

import (
	"errors"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"

	"github.com/jmoiron/sqlx"
)

// ErrJobConflict means another step advanced the job's cursor first; the
// losing caller must re-read and retry (or give up).
var ErrJobConflict = errors.New("job modified concurrently")

type JobRepo struct{ db *sqlx.DB }

func NewJobRepo(db *sqlx.DB) *JobRepo { return &JobRepo{db: db} }

func (r *JobRepo) q(s string) string { return r.db.Rebind(s) }

const jobCols = `
  id, kind, status, params_json, cursor_json, result_json, error, version,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *JobRepo) Create(j domain.Job) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO admin_jobs(id, kind, status, params_json, cursor_json, created_at)
	  VALUES(?,?,?,?,?,?)
	`), j.ID, j.Kind, j.Status, j.ParamsJSON, j.CursorJSON, now())
	return err
}

func (r *JobRepo) Get(id string) (domain.Job, error) {
	var j domain.Job
	err := r.db.Get(&j, r.q(`SELECT `+jobCols+` FROM admin_jobs WHERE id = ?`), id)
	return j, err
}

func (r *JobRepo) List(limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Job
	err := r.db.Select(&out, r.q(`
	  SELECT `+jobCols+` FROM admin_jobs ORDER BY created_at DESC LIMIT ?
	`), limit)
	return out, err
}

func (r *JobRepo) ListByStatus(status string, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Job
	err := r.db.Select(&out, r.q(`
	  SELECT `+jobCols+` FROM admin_jobs WHERE status = ? ORDER BY created_at ASC LIMIT ?
	`), status, limit)
	return out, err
}

// TransitionStatus moves a job from one status to another; reports whether
// the transition happened. A pending->running call on an already-running
// job is therefore a detectable no-op, not an error.
func (r *JobRepo) TransitionStatus(id, from, to string) (bool, error) {
	res, err := r.db.Exec(r.q(`
	  UPDATE admin_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`), to, now(), id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// AdvanceCursor writes the new cursor under an optimistic version check so
// two concurrent steps cannot both claim the same page.
func (r *JobRepo) AdvanceCursor(id string, version int, cursorJSON string) error {
	res, err := r.db.Exec(r.q(`
	  UPDATE admin_jobs SET cursor_json = ?, version = version + 1, updated_at = ?
	  WHERE id = ? AND version = ?
	`), cursorJSON, now(), id, version)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrJobConflict
	}
	return nil
}

// Finalize moves a job to a terminal status with an optional result or
// error message. Already-terminal jobs are left untouched.
func (r *JobRepo) Finalize(id, status, resultJSON, errMsg string) error {
	_, err := r.db.Exec(r.q(`
	  UPDATE admin_jobs SET status = ?, result_json = ?, error = ?, updated_at = ?
	  WHERE id = ? AND status IN (?, ?)
	`), status, resultJSON, errMsg, now(), id, domain.JobPending, domain.JobRunning)
	return err
}

// ---------- Candidates ----------

// InsertCandidate stages one discovered supplier product. Reports whether
// a new row was added; duplicates within a job are silently skipped.
func (r *JobRepo) InsertCandidate(c domain.JobCandidate) (bool, error) {
	res, err := r.db.Exec(r.q(`
	  INSERT INTO admin_job_items(job_id, cj_product_id, title, price, image_url, created_at)
	  VALUES(?,?,?,?,?,?)
	  ON CONFLICT(job_id, cj_product_id) DO NOTHING
	`), c.JobID, c.CJProductID, c.Title, c.Price, c.ImageURL, now())
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *JobRepo) Candidates(jobID string, limit int) ([]domain.JobCandidate, error) {
	if limit <= 0 {
		limit = 200
	}
	var out []domain.JobCandidate
	err := r.db.Select(&out, r.q(`
	  SELECT job_id, cj_product_id, title, price, image_url, COALESCE(created_at,'') AS created_at
	  FROM admin_job_items
	  WHERE job_id = ?
	  ORDER BY created_at ASC
	  LIMIT ?
	`), jobID, limit)
	return out, err
}

func (r *JobRepo) CandidateCount(jobID string) (int, error) {
	var n int
	err := r.db.Get(&n, r.q(`SELECT COUNT(*) FROM admin_job_items WHERE job_id = ?`), jobID)
	return n, err
}
