package content

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/curricula/core"
)

// Item is a piece of course content owned by a tenant.
type Item struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	CourseID    string    `json:"course_id,omitempty"` // empty: not attached to a course
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewItem contains information needed to create a new Item.
type NewItem struct {
	TenantID    string `json:"tenant_id" validate:"required,notblank,max=64"`
	CourseID    string `json:"course_id" validate:"omitempty,max=64"`
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Type        string `json:"type" validate:"omitempty,max=50,alphanum_"`
	Description string `json:"description"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.TenantID = core.CleanString(ni.TenantID)
	ni.CourseID = core.CleanString(ni.CourseID)
	ni.Title = core.CleanString(ni.Title)
	ni.Type = core.CleanString(ni.Type, true /* lower */)
	ni.Description = core.CleanString(ni.Description)
	return validate.Struct(ni)
}

type QueryFilter struct {
	TenantID string `query:"tenant_id"`
	CourseID string `query:"course_id"`
}

func (qf *QueryFilter) Clean() {
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.CourseID = core.CleanString(qf.CourseID)
}
