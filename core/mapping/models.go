package mapping

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/curricula/core"
)

const DefaultAlignmentStrength = 1.0

// Mapping associates a content item with one FK×CC cell of the INBDE matrix.
type Mapping struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	ContentID         string     `json:"content_id"`
	FKID              string     `json:"fk_id"`
	CCID              string     `json:"cc_id"`
	AlignmentStrength float64    `json:"alignment_strength"`
	IsAIGenerated     bool       `json:"is_ai_generated"`
	ReviewedBy        string     `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"` // UTC
	CreatedAt         time.Time  `json:"created_at"`            // UTC
	UpdatedAt         time.Time  `json:"updated_at"`            // UTC
}

// ContentSummary is the part of a content item shown next to its mappings.
type ContentSummary struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// MappedContent is a Mapping joined with its content item.
type MappedContent struct {
	Mapping
	Content ContentSummary `json:"content"`
}

// Cell identifies the matrix cell a mapping lives in, along with the course of its content (if any).
type Cell struct {
	TenantID string
	CourseID string
	FKID     string
	CCID     string
}

// CellListener is notified after mappings of the given cells have been written.
type CellListener interface {
	CellsTouched(ctx context.Context, cells ...Cell) error
}

// Mutation is the result of a mapping write.
// RecalcErr is set when the write succeeded but the coverage statistics could not be refreshed.
type Mutation struct {
	Mapping   Mapping
	RecalcErr error
}

// NewMapping contains information needed to create a new Mapping.
type NewMapping struct {
	TenantID          string   `json:"tenant_id" validate:"required,notblank"`
	ContentID         string   `json:"content_id" validate:"required,notblank"`
	FKID              string   `json:"fk_id" validate:"required,notblank"`
	CCID              string   `json:"cc_id" validate:"required,notblank"`
	AlignmentStrength *float64 `json:"alignment_strength" validate:"omitempty,gte=0,lte=1"`
	IsAIGenerated     bool     `json:"is_ai_generated"`
}

func (nm *NewMapping) Validate(validate *validator.Validate) error {
	nm.TenantID = core.CleanString(nm.TenantID)
	nm.ContentID = core.CleanString(nm.ContentID)
	nm.FKID = core.CleanString(nm.FKID)
	nm.CCID = core.CleanString(nm.CCID)
	return validate.Struct(nm)
}

// UpdateMapping defines what information may be provided to modify an existing Mapping.
type UpdateMapping struct {
	AlignmentStrength *float64 `json:"alignment_strength" validate:"omitempty,gte=0,lte=1"`
	ReviewedBy        string   `json:"reviewed_by" validate:"omitempty,max=255"`
}

func (um *UpdateMapping) Validate(validate *validator.Validate) error {
	um.ReviewedBy = core.CleanString(um.ReviewedBy)
	return validate.Struct(um)
}

// Suggestion is a candidate mapping produced by the AI categorization service.
type Suggestion struct {
	TenantID   string  `json:"tenant_id"`
	ContentID  string  `json:"content_id"`
	FKID       string  `json:"fk_id"`
	CCID       string  `json:"cc_id"`
	Confidence float64 `json:"confidence"`
	// AlignmentStrength defaults to Confidence.
	AlignmentStrength *float64 `json:"alignment_strength"`
}

// Rejection reports why the suggestion at Index could not become a mapping.
type Rejection struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type BatchResult struct {
	Created        []Mapping   `json:"created"`
	BelowThreshold int         `json:"below_threshold"`
	Duplicates     int         `json:"duplicates"`
	Rejected       []Rejection `json:"rejected"`
	RecalcErr      error       `json:"-"`
}
