package coverage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/mapping"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrJobNotFound = core.NewNotFoundError("recalculation job not found")
)

type (
	Repository interface {
		// CountMappedContent counts the distinct content items of the scope mapped to the cell.
		CountMappedContent(ctx context.Context, scope Scope, fkID, ccID string) (int, error)
		// CountContent counts the content items of the scope.
		CountContent(ctx context.Context, scope Scope) (int, error)
		// UpsertStat inserts or replaces the stat of (scope, fk, cc) in a single statement.
		// An existing stat calculated after stat.LastCalculatedAt is kept.
		UpsertStat(ctx context.Context, stat Stat) error
		QueryStats(ctx context.Context, scope Scope) ([]Stat, error)
	}

	Catalog interface {
		ListFoundationKnowledge(ctx context.Context) ([]competency.Area, error)
		ListClinicalContent(ctx context.Context) ([]competency.Area, error)
		IsInitialized(ctx context.Context) (bool, error)
	}

	JobStore interface {
		SaveJob(ctx context.Context, job Job) error
		// GetJob returns ErrJobNotFound if the job does not exist (or has expired).
		GetJob(ctx context.Context, id string) (Job, error)
	}

	Service struct {
		repo        Repository
		catalog     Catalog
		jobs        JobStore
		logger      core.Logger
		concurrency int
		timeout     time.Duration
		wg          sync.WaitGroup
	}
)

var _ mapping.CellListener = (*Service)(nil) // interface compliance check

func NewService(repo Repository, catalog Catalog, jobs JobStore, logger core.Logger, conf *core.Config) *Service {
	svc := &Service{
		repo:        repo,
		catalog:     catalog,
		jobs:        jobs,
		logger:      logger,
		concurrency: conf.Coverage.RecalcConcurrency,
		timeout:     conf.Coverage.RecalcTimeout,
	}
	if svc.concurrency <= 0 {
		svc.concurrency = 1
	}
	if svc.timeout <= 0 {
		svc.timeout = 2 * time.Minute
	}
	return svc
}

func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

func scopeAttrs(scope Scope) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tenant_id", scope.TenantID),
		attribute.String("course_id", scope.CourseID),
	}
}

func (svc *Service) listAreas(ctx context.Context) ([]competency.Area, []competency.Area, error) {
	fks, err := svc.catalog.ListFoundationKnowledge(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing foundation knowledge areas")
	}
	ccs, err := svc.catalog.ListClinicalContent(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing clinical content areas")
	}
	return fks, ccs, nil
}

// GetMatrix builds the FK×CC grid of the scope. Cells never calculated are zero-valued.
func (svc *Service) GetMatrix(ctx context.Context, scope Scope) (Matrix, error) {
	if err := scope.clean(); err != nil {
		return Matrix{}, err
	}

	initialized, err := svc.catalog.IsInitialized(ctx)
	if err != nil {
		return Matrix{}, err
	}
	if !initialized {
		return Matrix{
			FoundationKnowledge: []competency.Area{},
			ClinicalContent:     []competency.Area{},
			Matrix:              []MatrixRow{},
		}, nil
	}

	fks, ccs, err := svc.listAreas(ctx)
	if err != nil {
		return Matrix{}, err
	}
	stats, err := svc.repo.QueryStats(ctx, scope)
	if err != nil {
		return Matrix{}, errors.Wrap(err, "querying coverage stats")
	}
	byCell := make(map[[2]string]Stat, len(stats))
	for _, st := range stats {
		byCell[[2]string{st.FKID, st.CCID}] = st
	}

	rows := make([]MatrixRow, 0, len(fks))
	for _, fk := range fks {
		cells := make([]CellStat, 0, len(ccs))
		for _, cc := range ccs {
			cell := CellStat{CC: cc}
			if st, ok := byCell[[2]string{fk.ID, cc.ID}]; ok {
				calculatedAt := st.LastCalculatedAt
				cell.ContentCount = st.ContentCount
				cell.TotalContentCount = st.TotalContentCount
				cell.CoveragePercentage = st.CoveragePercentage
				cell.LastCalculatedAt = &calculatedAt
			}
			cells = append(cells, cell)
		}
		rows = append(rows, MatrixRow{FK: fk, CCMappings: cells})
	}

	return Matrix{
		Initialized:         true,
		FoundationKnowledge: fks,
		ClinicalContent:     ccs,
		Matrix:              rows,
	}, nil
}

// recalculateCell counts the mapped content of the cell and upserts its stat.
// calculatedAt must be taken before total was counted.
func (svc *Service) recalculateCell(ctx context.Context, scope Scope, fkID, ccID string, total int, calculatedAt time.Time) (Stat, error) {
	count, err := svc.repo.CountMappedContent(ctx, scope, fkID, ccID)
	if err != nil {
		cellRecalcTotal.WithLabelValues("error").Inc()
		return Stat{}, errors.Wrap(err, "counting mapped content")
	}

	stat := Stat{
		Scope:              scope,
		FKID:               fkID,
		CCID:               ccID,
		ContentCount:       count,
		TotalContentCount:  total,
		CoveragePercentage: NewPercentage(count, total),
		LastCalculatedAt:   calculatedAt,
	}
	if err = svc.repo.UpsertStat(ctx, stat); err != nil {
		cellRecalcTotal.WithLabelValues("error").Inc()
		return Stat{}, errors.Wrap(err, "upserting coverage stat")
	}
	cellRecalcTotal.WithLabelValues("ok").Inc()
	return stat, nil
}

// RecalculateCell recomputes and stores the coverage of one cell.
func (svc *Service) RecalculateCell(ctx context.Context, scope Scope, fkID, ccID string) (Stat, error) {
	if err := scope.clean(); err != nil {
		return Stat{}, err
	}

	ctx, span := tracer.Start(ctx, "coverage.Service.RecalculateCell",
		trace.WithAttributes(append(scopeAttrs(scope), attribute.String("fk_id", fkID), attribute.String("cc_id", ccID))...))
	defer span.End()

	calculatedAt := now()
	total, err := svc.repo.CountContent(ctx, scope)
	if err != nil {
		cellRecalcTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "counting content")
		return Stat{}, errors.Wrap(err, "counting content")
	}

	stat, err := svc.recalculateCell(ctx, scope, fkID, ccID, total, calculatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recalculating cell")
		return Stat{}, err
	}
	span.SetAttributes(attribute.Int("content_count", stat.ContentCount), attribute.Int("total_content_count", total))
	return stat, nil
}

// RecalculateAll recomputes every active FK×CC cell of the scope.
// A failing cell is logged and counted in the report; it never stops the others.
// An error is only returned if the sweep could not start or ran out of time.
func (svc *Service) RecalculateAll(ctx context.Context, scope Scope) (Report, error) {
	if err := scope.clean(); err != nil {
		return Report{}, err
	}

	ctx, span := tracer.Start(ctx, "coverage.Service.RecalculateAll", trace.WithAttributes(scopeAttrs(scope)...))
	defer span.End()

	start := time.Now()
	fks, ccs, err := svc.listAreas(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing areas")
		return Report{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	calculatedAt := now()
	total, err := svc.repo.CountContent(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "counting content")
		return Report{}, errors.Wrap(err, "counting content")
	}

	var failed int64
	g := new(errgroup.Group)
	g.SetLimit(svc.concurrency)
	for _, fk := range fks {
		for _, cc := range ccs {
			fkID, ccID := fk.ID, cc.ID
			g.Go(func() error {
				if ctx.Err() != nil {
					atomic.AddInt64(&failed, 1)
					return nil
				}
				if _, err := svc.recalculateCell(ctx, scope, fkID, ccID, total, calculatedAt); err != nil {
					atomic.AddInt64(&failed, 1)
					svc.logger.Error(fmt.Sprintf("recalculating cell %s/%s of %s", fkID, ccID, scope), err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	report := Report{
		Scope:    scope,
		Cells:    len(fks) * len(ccs),
		Failed:   int(failed),
		Duration: time.Since(start),
	}
	sweepDuration.WithLabelValues(scopeLabel(scope)).Observe(report.Duration.Seconds())
	sweepFailedCells.Add(float64(report.Failed))
	span.SetAttributes(attribute.Int("cells", report.Cells), attribute.Int("failed", report.Failed))

	if err = ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sweep timed out")
		return report, errors.Wrapf(err, "recalculating %s", scope)
	}
	svc.logger.Info(fmt.Sprintf("recalculated %d cells of %s (%d failed) in %s", report.Cells, scope, report.Failed, report.Duration))
	return report, nil
}

// CellsTouched recalculates the tenant-wide stat of every cell, and its course stat when the content has a course.
func (svc *Service) CellsTouched(ctx context.Context, cells ...mapping.Cell) error {
	type key struct {
		scope Scope
		fkID  string
		ccID  string
	}

	var (
		failed   int
		firstErr error
	)
	done := make(map[key]bool, len(cells)*2)
	for _, cell := range cells {
		scopes := []Scope{TenantScope(cell.TenantID)}
		if cell.CourseID != "" {
			scopes = append(scopes, CourseScope(cell.TenantID, cell.CourseID))
		}
		for _, scope := range scopes {
			k := key{scope: scope, fkID: cell.FKID, ccID: cell.CCID}
			if done[k] {
				continue
			}
			done[k] = true

			if _, err := svc.RecalculateCell(ctx, scope, cell.FKID, cell.CCID); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	if firstErr != nil {
		return errors.Wrapf(firstErr, "%d coverage cell recalculation(s) failed", failed)
	}
	return nil
}

// StartRecalculation runs RecalculateAll in the background. Poll its progress with GetJob.
func (svc *Service) StartRecalculation(ctx context.Context, scope Scope) (Job, error) {
	if err := scope.clean(); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:        uuid.New().String(),
		TenantID:  scope.TenantID,
		CourseID:  scope.CourseID,
		Status:    JobPending,
		CreatedAt: now(),
	}
	if err := svc.jobs.SaveJob(ctx, job); err != nil {
		return Job{}, errors.Wrap(err, "saving recalculation job")
	}

	svc.wg.Add(1)
	go svc.runJob(job, scope)
	return job, nil
}

func (svc *Service) runJob(job Job, scope Scope) {
	defer svc.wg.Done()
	jobsInFlight.Inc()
	defer jobsInFlight.Dec()

	// the request that started the job is long gone
	ctx := context.Background()

	save := func() {
		if err := svc.jobs.SaveJob(ctx, job); err != nil {
			svc.logger.Error(fmt.Sprintf("saving recalculation job %s", job.ID), err)
		}
	}

	job.Status = JobRunning
	save()

	report, err := svc.RecalculateAll(ctx, scope)
	finishedAt := now()
	job.FinishedAt = &finishedAt
	job.Cells = report.Cells
	job.FailedCells = report.Failed
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		svc.logger.Error(fmt.Sprintf("recalculation job %s failed", job.ID), err)
	} else {
		job.Status = JobSucceeded
	}
	save()
}

func (svc *Service) GetJob(ctx context.Context, id string) (Job, error) {
	return svc.jobs.GetJob(ctx, core.CleanString(id))
}

// Wait blocks until all background recalculations are done.
func (svc *Service) Wait() {
	svc.wg.Wait()
}
