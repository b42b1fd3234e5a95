package mapping

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/content"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("content mapping not found")
	ErrExists   = core.NewConflictError("this content is already mapped to this cell")

	errInvalidThreshold = core.NewValidationError(nil, core.FieldError{Field: "threshold", Error: "must be between 0 and 1"})
)

type (
	Repository interface {
		// CreateMapping returns ErrExists if the (tenant, content, fk, cc) tuple is already mapped.
		CreateMapping(ctx context.Context, m Mapping) (Mapping, error)
		GetMapping(ctx context.Context, id string) (Mapping, error)
		UpdateMapping(ctx context.Context, m Mapping) (Mapping, error)
		// DeleteMapping removes the mapping and returns it as it was before deletion.
		DeleteMapping(ctx context.Context, id string) (Mapping, error)
		// QueryCellMappings returns the tenant's mappings of the cell, newest first.
		QueryCellMappings(ctx context.Context, tenantID, fkID, ccID string) ([]MappedContent, error)
	}

	AreaFinder interface {
		GetActiveArea(ctx context.Context, kind competency.Kind, id string) (competency.Area, error)
	}

	ContentFinder interface {
		Get(ctx context.Context, id string) (content.Item, error)
	}

	Service struct {
		repo     Repository
		areas    AreaFinder
		contents ContentFinder
		listener CellListener
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	areas AreaFinder,
	contents ContentFinder,
	listener CellListener,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		areas:    areas,
		contents: contents,
		listener: listener,
		validate: validate,
		logger:   logger,
	}
}

// notify runs the listener. A failure is logged and returned for Mutation.RecalcErr.
func (svc *Service) notify(ctx context.Context, cells ...Cell) error {
	if svc.listener == nil || len(cells) == 0 {
		return nil
	}
	if err := svc.listener.CellsTouched(ctx, cells...); err != nil {
		svc.logger.Warn("coverage statistics recalculation failed", err)
		return err
	}
	return nil
}

// cellOf returns the cell of m. The content course is left empty if the content cannot be found.
func (svc *Service) cellOf(ctx context.Context, m Mapping) Cell {
	cell := Cell{TenantID: m.TenantID, FKID: m.FKID, CCID: m.CCID}
	item, err := svc.contents.Get(ctx, m.ContentID)
	if err != nil {
		if !core.IsNotFound(err) {
			svc.logger.Warn("loading mapped content", err)
		}
		return cell
	}
	cell.CourseID = item.CourseID
	return cell
}

func (svc *Service) create(ctx context.Context, nm NewMapping) (Mapping, Cell, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Mapping{}, Cell{}, err
	}
	if _, err := svc.areas.GetActiveArea(ctx, competency.KindFoundationKnowledge, nm.FKID); err != nil {
		return Mapping{}, Cell{}, err
	}
	if _, err := svc.areas.GetActiveArea(ctx, competency.KindClinicalContent, nm.CCID); err != nil {
		return Mapping{}, Cell{}, err
	}
	item, err := svc.contents.Get(ctx, nm.ContentID)
	if err != nil {
		return Mapping{}, Cell{}, err
	}
	if item.TenantID != nm.TenantID {
		return Mapping{}, Cell{}, content.ErrNotFound
	}

	strength := DefaultAlignmentStrength
	if nm.AlignmentStrength != nil {
		strength = *nm.AlignmentStrength
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	m, err := svc.repo.CreateMapping(ctx, Mapping{
		TenantID:          nm.TenantID,
		ContentID:         nm.ContentID,
		FKID:              nm.FKID,
		CCID:              nm.CCID,
		AlignmentStrength: strength,
		IsAIGenerated:     nm.IsAIGenerated,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return Mapping{}, Cell{}, err
	}
	return m, Cell{TenantID: m.TenantID, CourseID: item.CourseID, FKID: m.FKID, CCID: m.CCID}, nil
}

// Create adds a mapping then refreshes the coverage statistics of its cell.
func (svc *Service) Create(ctx context.Context, nm NewMapping) (Mutation, error) {
	m, cell, err := svc.create(ctx, nm)
	if err != nil {
		return Mutation{}, err
	}
	return Mutation{Mapping: m, RecalcErr: svc.notify(ctx, cell)}, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Mapping, error) {
	return svc.repo.GetMapping(ctx, core.CleanString(id))
}

// Update changes the alignment strength and/or signs the mapping off.
// Setting ReviewedBy stamps ReviewedAt.
func (svc *Service) Update(ctx context.Context, id string, um UpdateMapping) (Mutation, error) {
	if err := um.Validate(svc.validate); err != nil {
		return Mutation{}, err
	}
	m, err := svc.Get(ctx, id)
	if err != nil {
		return Mutation{}, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	if um.AlignmentStrength != nil {
		m.AlignmentStrength = *um.AlignmentStrength
	}
	if um.ReviewedBy != "" {
		m.ReviewedBy = um.ReviewedBy
		m.ReviewedAt = &now
	}
	m.UpdatedAt = now

	if m, err = svc.repo.UpdateMapping(ctx, m); err != nil {
		return Mutation{}, err
	}
	return Mutation{Mapping: m, RecalcErr: svc.notify(ctx, svc.cellOf(ctx, m))}, nil
}

// Delete removes a mapping then refreshes the coverage statistics of the cell it was in.
func (svc *Service) Delete(ctx context.Context, id string) (Mutation, error) {
	m, err := svc.repo.DeleteMapping(ctx, core.CleanString(id))
	if err != nil {
		return Mutation{}, err
	}
	return Mutation{Mapping: m, RecalcErr: svc.notify(ctx, svc.cellOf(ctx, m))}, nil
}

func (svc *Service) ListForCell(ctx context.Context, tenantID, fkID, ccID string) ([]MappedContent, error) {
	return svc.repo.QueryCellMappings(ctx, core.CleanString(tenantID), core.CleanString(fkID), core.CleanString(ccID))
}

// CreateBatch turns AI suggestions into mappings.
// Suggestions below threshold are skipped, so are already mapped ones. Invalid suggestions are reported
// in BatchResult.Rejected. The statistics of every touched cell are refreshed once, at the end.
func (svc *Service) CreateBatch(ctx context.Context, suggestions []Suggestion, threshold float64) (BatchResult, error) {
	if threshold < 0 || threshold > 1 {
		return BatchResult{}, errInvalidThreshold
	}

	res := BatchResult{Created: make([]Mapping, 0, len(suggestions))}
	var cells []Cell
	seen := make(map[Cell]bool)

	for i, sug := range suggestions {
		if sug.Confidence < threshold {
			res.BelowThreshold++
			continue
		}
		strength := sug.Confidence
		if sug.AlignmentStrength != nil {
			strength = *sug.AlignmentStrength
		}

		m, cell, err := svc.create(ctx, NewMapping{
			TenantID:          sug.TenantID,
			ContentID:         sug.ContentID,
			FKID:              sug.FKID,
			CCID:              sug.CCID,
			AlignmentStrength: &strength,
			IsAIGenerated:     true,
		})
		switch {
		case err == nil:
		case errors.Cause(err) == ErrExists:
			res.Duplicates++
			continue
		case core.IsValidation(err) || core.IsNotFound(err):
			res.Rejected = append(res.Rejected, Rejection{Index: i, Error: err.Error()})
			continue
		default:
			// mappings created so far are committed
			_ = svc.notify(ctx, cells...)
			return BatchResult{}, errors.Wrapf(err, "creating mapping for suggestion %d", i)
		}

		res.Created = append(res.Created, m)
		if !seen[cell] {
			seen[cell] = true
			cells = append(cells, cell)
		}
	}

	res.RecalcErr = svc.notify(ctx, cells...)
	return res, nil
}
