package competency

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core"
)

var (
	// errors
	ErrAreaNotFound = core.NewNotFoundError("competency area not found")
)

type (
	Repository interface {
		// InsertAreas inserts areas, skipping those whose (kind, number) already exists.
		// Returns the number of rows actually inserted.
		InsertAreas(ctx context.Context, areas []Area) (int, error)
		// QueryAreas returns the areas of the given kind ordered by number.
		QueryAreas(ctx context.Context, kind Kind, activeOnly bool) ([]Area, error)
		GetArea(ctx context.Context, id string) (Area, error)
		CountAreas(ctx context.Context, kind Kind) (int, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) ListFoundationKnowledge(ctx context.Context) ([]Area, error) {
	return svc.repo.QueryAreas(ctx, KindFoundationKnowledge, true /* activeOnly */)
}

func (svc *Service) ListClinicalContent(ctx context.Context) ([]Area, error) {
	return svc.repo.QueryAreas(ctx, KindClinicalContent, true /* activeOnly */)
}

// Seed inserts the INBDE catalog. Safe to call any number of times.
func (svc *Service) Seed(ctx context.Context) (int, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	areas := Catalog()
	for i := range areas {
		areas[i].CreatedAt = now
	}

	inserted, err := svc.repo.InsertAreas(ctx, areas)
	if err != nil {
		return 0, errors.Wrap(err, "seeding competency catalog")
	}
	svc.logger.Info(fmt.Sprintf("competency catalog seeded: %d new areas", inserted))
	return inserted, nil
}

func (svc *Service) GetArea(ctx context.Context, id string) (Area, error) {
	return svc.repo.GetArea(ctx, core.CleanString(id))
}

// GetActiveArea returns the area `id` if it is active and of the given kind.
func (svc *Service) GetActiveArea(ctx context.Context, kind Kind, id string) (Area, error) {
	area, err := svc.GetArea(ctx, id)
	if err != nil {
		return Area{}, err
	}
	if area.Kind != kind || !area.IsActive {
		return Area{}, ErrAreaNotFound
	}
	return area, nil
}

// IsInitialized reports whether the catalog has been seeded (at least one area of each kind).
func (svc *Service) IsInitialized(ctx context.Context) (bool, error) {
	for _, kind := range []Kind{KindFoundationKnowledge, KindClinicalContent} {
		n, err := svc.repo.CountAreas(ctx, kind)
		if err != nil {
			return false, errors.Wrap(err, "counting competency areas")
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}
