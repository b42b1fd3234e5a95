package content

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core"
)

const defaultType = "document"

var (
	// errors
	ErrNotFound = core.NewNotFoundError("content item not found")

	// OrderingFields are the fields items can be ordered by.
	OrderingFields = map[string]bool{"title": true, "type": true, "created_at": true, "updated_at": true}
)

type (
	Repository interface {
		CreateItem(ctx context.Context, item Item) (Item, error)
		GetItem(ctx context.Context, id string) (Item, error)
		// QueryItems applies AND operation on the set QueryFilter fields.
		// Items are ordered by created_at descending when no ordering is given.
		QueryItems(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Item, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, ni NewItem) (Item, error) {
	if err := ni.Validate(svc.validate); err != nil {
		return Item{}, err
	}
	if ni.Type == "" {
		ni.Type = defaultType
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	item, err := svc.repo.CreateItem(ctx, Item{
		TenantID:    ni.TenantID,
		CourseID:    ni.CourseID,
		Title:       ni.Title,
		Type:        ni.Type,
		Description: ni.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Item{}, errors.Wrap(err, "creating content item")
	}
	return item, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItem(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Item, error) {
	filter.Clean()
	if filter.TenantID == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "tenant_id", Error: "this field is required"})
	}
	for _, ord := range ordering {
		if !OrderingFields[ord.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "cannot order by " + ord.Field})
		}
	}
	return svc.repo.QueryItems(ctx, filter, ordering)
}
