package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"

	"github.com/google/uuid"
)

// MaxStepsPerRun caps how many pages a single "run all" HTTP call may
// fetch; a job bigger than this needs repeated calls (cron or polling UI).
const MaxStepsPerRun = 25

var ErrJobCancelled = errors.New("job cancelled")

// JobService drives externally-stepped discovery jobs. There is no
// scheduler here: every page fetch happens inside a caller's HTTP request,
// and state lives in the admin_jobs row between calls.
type JobService struct {
	Jobs     *repos.JobRepo
	Products *repos.ProductRepo
	Sync     *SyncService
	Supplier Supplier
}

func NewJobService(jobs *repos.JobRepo, products *repos.ProductRepo, sync *SyncService, sup Supplier) *JobService {
	return &JobService{Jobs: jobs, Products: products, Sync: sync, Supplier: sup}
}

// CreateFinder persists a new pending discovery job with a zero cursor.
func (s *JobService) CreateFinder(params domain.FinderParams) (domain.Job, error) {
	if len(params.Keywords) == 0 {
		return domain.Job{}, fmt.Errorf("at least one keyword required")
	}
	if params.TargetQuantity <= 0 {
		params.TargetQuantity = 50
	}
	if params.PageSize <= 0 || params.PageSize > 50 {
		params.PageSize = 20
	}
	if params.MaxPagesPerKeyword <= 0 {
		params.MaxPagesPerKeyword = 5
	}

	pj, err := json.Marshal(params)
	if err != nil {
		return domain.Job{}, err
	}
	cj0, _ := json.Marshal(domain.FinderCursor{})

	j := domain.Job{
		ID:         uuid.NewString(),
		Kind:       domain.JobKindFinder,
		Status:     domain.JobPending,
		ParamsJSON: string(pj),
		CursorJSON: string(cj0),
	}
	if err := s.Jobs.Create(j); err != nil {
		return domain.Job{}, err
	}
	return j, nil
}

// CreateScanner persists a stock-refresh job over the imported catalog.
func (s *JobService) CreateScanner(batchSize int) (domain.Job, error) {
	if batchSize <= 0 || batchSize > 50 {
		batchSize = 10
	}
	pj, _ := json.Marshal(map[string]int{"batchSize": batchSize})
	cj0, _ := json.Marshal(domain.FinderCursor{})
	j := domain.Job{
		ID:         uuid.NewString(),
		Kind:       domain.JobKindScanner,
		Status:     domain.JobPending,
		ParamsJSON: string(pj),
		CursorJSON: string(cj0),
	}
	if err := s.Jobs.Create(j); err != nil {
		return domain.Job{}, err
	}
	return j, nil
}

// Start moves pending -> running exactly once; calling it on an already
// running job is a no-op.
func (s *JobService) Start(id string) (domain.Job, error) {
	if _, err := s.Jobs.TransitionStatus(id, domain.JobPending, domain.JobRunning); err != nil {
		return domain.Job{}, err
	}
	return s.Jobs.Get(id)
}

// Cancel flips a non-terminal job to cancelled. Cooperative: a step in
// flight finishes its page but will not advance further.
func (s *JobService) Cancel(id string) error {
	return s.Jobs.Finalize(id, domain.JobCancelled, "", "")
}

// Step advances a job by one unit of work. Returns the number of items
// handled and whether the job is finished (any terminal status).
func (s *JobService) Step(ctx context.Context, id string) (added int, done bool, err error) {
	j, err := s.Start(id)
	if err != nil {
		return 0, false, err
	}
	if domain.TerminalJobStatus(j.Status) {
		return 0, true, nil
	}

	switch j.Kind {
	case domain.JobKindFinder:
		added, done, err = s.stepFinder(ctx, j)
	case domain.JobKindScanner:
		added, done, err = s.stepScanner(ctx, j)
	default:
		err = fmt.Errorf("unknown job kind %q", j.Kind)
	}

	// Cursor races are surfaced, not recorded as job failure: the winning
	// step already advanced the job.
	if err != nil && !errors.Is(err, repos.ErrJobConflict) && !errors.Is(err, context.Canceled) {
		_ = s.Jobs.Finalize(j.ID, domain.JobFailure, "", err.Error())
		applog.Sync("job.step.fail", err, map[string]any{"job_id": j.ID, "kind": j.Kind})
	}
	return added, done, err
}

func (s *JobService) stepFinder(ctx context.Context, j domain.Job) (int, bool, error) {
	var params domain.FinderParams
	if err := json.Unmarshal([]byte(j.ParamsJSON), &params); err != nil {
		return 0, false, fmt.Errorf("corrupt params: %w", err)
	}
	var cur domain.FinderCursor
	if err := json.Unmarshal([]byte(j.CursorJSON), &cur); err != nil {
		return 0, false, fmt.Errorf("corrupt cursor: %w", err)
	}

	if cur.Collected >= params.TargetQuantity || cur.KeywordIndex >= len(params.Keywords) {
		return 0, true, s.finalizeSuccess(j.ID, cur)
	}

	// Cancellation checkpoint before the expensive work.
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if cancelled, err := s.isCancelled(j.ID); err != nil || cancelled {
		return 0, cancelled, err
	}

	keyword := params.Keywords[cur.KeywordIndex]
	page, err := s.Supplier.SearchProducts(ctx, keyword, cur.Page+1, params.PageSize)
	if err != nil {
		return 0, false, err
	}

	// Re-check after the fetch: a cancel issued mid-page must not advance
	// the cursor or stage more candidates.
	if cancelled, err := s.isCancelled(j.ID); err != nil || cancelled {
		return 0, cancelled, err
	}

	added := 0
	for _, item := range page.Items {
		if cur.Collected+added >= params.TargetQuantity {
			break
		}
		mapped := cj.MapItem(&item)
		if mapped == nil {
			continue
		}
		if params.MinPrice > 0 && mapped.Price < params.MinPrice {
			continue
		}
		if params.MaxPrice > 0 && mapped.Price > params.MaxPrice {
			continue
		}
		img := ""
		if len(mapped.Images) > 0 {
			img = mapped.Images[0]
		}
		inserted, err := s.Jobs.InsertCandidate(domain.JobCandidate{
			JobID:       j.ID,
			CJProductID: mapped.CJProductID,
			Title:       mapped.Title,
			Price:       mapped.Price,
			ImageURL:    img,
		})
		if err != nil {
			return added, false, err
		}
		if inserted {
			added++
		}
	}

	next := cur
	next.Collected += added
	next.Page++
	if next.Page >= params.MaxPagesPerKeyword || !page.HasMore {
		next.KeywordIndex++
		next.Page = 0
	}

	nextJSON, _ := json.Marshal(next)
	if err := s.Jobs.AdvanceCursor(j.ID, j.Version, string(nextJSON)); err != nil {
		return 0, false, err
	}

	if next.Collected >= params.TargetQuantity || next.KeywordIndex >= len(params.Keywords) {
		return added, true, s.finalizeSuccess(j.ID, next)
	}
	return added, false, nil
}

// stepScanner refreshes stock for one batch of imported products per step.
func (s *JobService) stepScanner(ctx context.Context, j domain.Job) (int, bool, error) {
	var params struct {
		BatchSize int `json:"batchSize"`
	}
	if err := json.Unmarshal([]byte(j.ParamsJSON), &params); err != nil {
		return 0, false, fmt.Errorf("corrupt params: %w", err)
	}
	var cur domain.FinderCursor // Page doubles as the batch offset
	if err := json.Unmarshal([]byte(j.CursorJSON), &cur); err != nil {
		return 0, false, fmt.Errorf("corrupt cursor: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if cancelled, err := s.isCancelled(j.ID); err != nil || cancelled {
		return 0, cancelled, err
	}

	products, err := s.Products.ListImported(params.BatchSize, cur.Page*params.BatchSize)
	if err != nil {
		return 0, false, err
	}
	if len(products) == 0 {
		return 0, true, s.finalizeSuccess(j.ID, cur)
	}

	refreshed := 0
	for _, p := range products {
		if cancelled, err := s.isCancelled(j.ID); err != nil || cancelled {
			return refreshed, cancelled, err
		}
		if err := s.Sync.RefreshStock(ctx, p.ID); err != nil {
			applog.Sync("job.scan.item.fail", err, map[string]any{"job_id": j.ID, "product_id": p.ID})
			continue
		}
		refreshed++
	}

	next := cur
	next.Page++
	next.Collected += refreshed
	nextJSON, _ := json.Marshal(next)
	if err := s.Jobs.AdvanceCursor(j.ID, j.Version, string(nextJSON)); err != nil {
		return refreshed, false, err
	}

	if len(products) < params.BatchSize {
		return refreshed, true, s.finalizeSuccess(j.ID, next)
	}
	return refreshed, false, nil
}

func (s *JobService) isCancelled(id string) (bool, error) {
	j, err := s.Jobs.Get(id)
	if err != nil {
		return false, err
	}
	return j.Status == domain.JobCancelled, nil
}

func (s *JobService) finalizeSuccess(id string, cur domain.FinderCursor) error {
	result, _ := json.Marshal(map[string]int{"collected": cur.Collected})
	return s.Jobs.Finalize(id, domain.JobSuccess, string(result), "")
}

// RunResult summarizes a run endpoint invocation.
type RunResult struct {
	Done                 bool `json:"done"`
	StepsRun             int  `json:"stepsRun"`
	CandidatesAddedTotal int  `json:"candidatesAddedTotal"`
}

// RunSteps executes one step ("step") or up to steps pages ("all",
// bounded by MaxStepsPerRun) within a single call.
func (s *JobService) RunSteps(ctx context.Context, id, mode string, steps int) (RunResult, error) {
	max := 1
	if mode == "all" {
		max = steps
		if max <= 0 || max > MaxStepsPerRun {
			max = MaxStepsPerRun
		}
	}

	var res RunResult
	for i := 0; i < max; i++ {
		added, done, err := s.Step(ctx, id)
		if err != nil {
			return res, err
		}
		res.StepsRun++
		res.CandidatesAddedTotal += added
		if done {
			res.Done = true
			break
		}
	}
	return res, nil
}
