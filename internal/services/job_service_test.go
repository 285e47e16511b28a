package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobEnv struct {
	jobs *repos.JobRepo
	sup  *fakeSupplier
	svc  *services.JobService
}

func newJobEnv(t *testing.T, db *sqlx.DB) *jobEnv {
	t.Helper()
	products := repos.NewProductRepo(db)
	jobs := repos.NewJobRepo(db)
	sup := &fakeSupplier{}
	sync := services.NewSyncService(products, repos.NewCategoryRepo(db), repos.NewAuditRepo(db), sup)
	return &jobEnv{
		jobs: jobs,
		sup:  sup,
		svc:  services.NewJobService(jobs, products, sync, sup),
	}
}

// pageOf fabricates a search page of n items with distinct pids.
func pageOf(keyword string, page, n int, hasMore bool) *cj.SearchPage {
	items := make([]cj.RawItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, cj.RawItem{
			Pid:       fmt.Sprintf("%s-%d-%d", keyword, page, i),
			NameEn:    fmt.Sprintf("%s item %d", keyword, i),
			SellPrice: "5.00",
		})
	}
	return &cj.SearchPage{Items: items, Total: 1000, HasMore: hasMore}
}

func TestCreateFinderValidatesAndDefaults(t *testing.T) {
	e := newJobEnv(t, testDB(t))

	_, err := e.svc.CreateFinder(domain.FinderParams{})
	assert.Error(t, err, "keywords are required")

	j, err := e.svc.CreateFinder(domain.FinderParams{Keywords: []string{"mug"}})
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, j.Status)
	assert.Equal(t, domain.JobKindFinder, j.Kind)
}

func TestStepFinderCollectsUntilTarget(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return pageOf(kw, page, size, true), nil
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{
		Keywords: []string{"mug"}, TargetQuantity: 5, PageSize: 3, MaxPagesPerKeyword: 10,
	})
	require.NoError(t, err)

	added, done, err := e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.False(t, done)

	cur, err := e.jobs.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, cur.Status)

	// The second page tops up to the target and finalizes.
	added, done, err = e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.True(t, done)

	final, err := e.jobs.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSuccess, final.Status)

	n, err := e.jobs.CandidateCount(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestStepFinderDeduplicatesAcrossPages(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	// Every page returns the same three items.
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return pageOf(kw, 1, 3, true), nil
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{
		Keywords: []string{"mug"}, TargetQuantity: 10, PageSize: 3, MaxPagesPerKeyword: 10,
	})
	require.NoError(t, err)

	added1, _, err := e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	added2, _, err := e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, added1)
	assert.Equal(t, 0, added2, "repeat pids must not count toward the target")
}

func TestStepFinderPriceFilter(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return &cj.SearchPage{Items: []cj.RawItem{
			{Pid: "cheap", NameEn: "Cheap", SellPrice: "0.50"},
			{Pid: "mid", NameEn: "Mid", SellPrice: "5.00"},
			{Pid: "dear", NameEn: "Dear", SellPrice: "50.00"},
		}}, nil
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{
		Keywords: []string{"mug"}, TargetQuantity: 10, MinPrice: 1, MaxPrice: 10,
	})
	require.NoError(t, err)

	added, _, err := e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	cands, err := e.jobs.Candidates(j.ID, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "mid", cands[0].CJProductID)
}

func TestStepFinderMovesToNextKeywordOnExhaustion(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return pageOf(kw, page, 1, false), nil // every keyword has a single page
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{
		Keywords: []string{"mug", "lamp"}, TargetQuantity: 10, MaxPagesPerKeyword: 5,
	})
	require.NoError(t, err)

	_, done, err := e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	assert.False(t, done)

	_, done, err = e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	assert.True(t, done, "both keywords exhausted")

	final, err := e.jobs.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSuccess, final.Status)
}

func TestCancelStopsStepping(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return pageOf(kw, page, size, true), nil
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{Keywords: []string{"mug"}, TargetQuantity: 100})
	require.NoError(t, err)
	require.NoError(t, e.svc.Cancel(j.ID))

	_, done, err := e.svc.Step(context.Background(), j.ID)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 0, e.sup.searchCalls, "a cancelled job must not fetch")

	final, err := e.jobs.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, final.Status)
}

func TestStepFailureFinalizesJob(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return nil, fmt.Errorf("supplier 5xx")
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{Keywords: []string{"mug"}, TargetQuantity: 10})
	require.NoError(t, err)

	_, _, err = e.svc.Step(context.Background(), j.ID)
	require.Error(t, err)

	final, err := e.jobs.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailure, final.Status)
	assert.Contains(t, final.Error, "supplier 5xx")
}

func TestAdvanceCursorConflict(t *testing.T) {
	e := newJobEnv(t, testDB(t))

	j, err := e.svc.CreateFinder(domain.FinderParams{Keywords: []string{"mug"}, TargetQuantity: 10})
	require.NoError(t, err)

	require.NoError(t, e.jobs.AdvanceCursor(j.ID, 0, `{"keywordIndex":0,"page":1,"collected":0}`))
	err = e.jobs.AdvanceCursor(j.ID, 0, `{"keywordIndex":0,"page":2,"collected":0}`)
	assert.ErrorIs(t, err, repos.ErrJobConflict)
}

func TestRunStepsBounded(t *testing.T) {
	e := newJobEnv(t, testDB(t))
	e.sup.searchFn = func(kw string, page, size int) (*cj.SearchPage, error) {
		return pageOf(kw, page, 2, true), nil
	}

	j, err := e.svc.CreateFinder(domain.FinderParams{
		Keywords: []string{"mug"}, TargetQuantity: 1000, PageSize: 2, MaxPagesPerKeyword: 1000,
	})
	require.NoError(t, err)

	res, err := e.svc.RunSteps(context.Background(), j.ID, "all", 0)
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, services.MaxStepsPerRun, res.StepsRun)
	assert.Equal(t, services.MaxStepsPerRun, e.sup.searchCalls)
}

func TestScannerJobRefreshesImportedProducts(t *testing.T) {
	db := testDB(t)
	e := newJobEnv(t, db)
	products := repos.NewProductRepo(db)

	for i := 1; i <= 3; i++ {
		p := localProduct(fmt.Sprintf("prod-%d", i), fmt.Sprintf("scan-item-%d", i), 99)
		p.CJProductID = fmt.Sprintf("cj-%d", i)
		require.NoError(t, products.Insert(p))
	}
	e.sup.queryFn = func(pid string) (*cj.RawItem, error) {
		return &cj.RawItem{
			Pid: pid, NameEn: "Scanned", SellPrice: "1.00",
			Variants: []cj.RawVariant{{Vid: "cv-" + pid, SellPrice: "1.00", Inventory: 2}},
		}, nil
	}

	j, err := e.svc.CreateScanner(2)
	require.NoError(t, err)

	res, err := e.svc.RunSteps(context.Background(), j.ID, "all", 10)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 3, e.sup.queryCalls)

	p, err := products.Get("prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}
