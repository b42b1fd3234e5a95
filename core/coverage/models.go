package coverage

import (
	"time"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
)

// Scope is the key statistics are computed for: a whole tenant, or one course of a tenant.
type Scope struct {
	TenantID string `json:"tenant_id"`
	CourseID string `json:"course_id,omitempty"` // empty: tenant-wide
}

func TenantScope(tenantID string) Scope {
	return Scope{TenantID: tenantID}
}

func CourseScope(tenantID, courseID string) Scope {
	return Scope{TenantID: tenantID, CourseID: courseID}
}

func (s Scope) IsCourse() bool {
	return s.CourseID != ""
}

func (s Scope) String() string {
	if s.IsCourse() {
		return "tenant " + s.TenantID + " / course " + s.CourseID
	}
	return "tenant " + s.TenantID
}

func (s *Scope) clean() error {
	s.TenantID = core.CleanString(s.TenantID)
	s.CourseID = core.CleanString(s.CourseID)
	if s.TenantID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "tenant_id", Error: "this field is required"})
	}
	return nil
}

// Stat is the cached coverage of one cell for one scope.
type Stat struct {
	Scope
	FKID               string     `json:"fk_id"`
	CCID               string     `json:"cc_id"`
	ContentCount       int        `json:"content_count"`
	TotalContentCount  int        `json:"total_content_count"`
	CoveragePercentage Percentage `json:"coverage_percentage"`
	LastCalculatedAt   time.Time  `json:"last_calculated_at"` // UTC
}

type CellStat struct {
	CC                 competency.Area `json:"cc"`
	ContentCount       int             `json:"content_count"`
	TotalContentCount  int             `json:"total_content_count"`
	CoveragePercentage Percentage      `json:"coverage_percentage"`
	LastCalculatedAt   *time.Time      `json:"last_calculated_at,omitempty"` // nil: never calculated
}

type MatrixRow struct {
	FK         competency.Area `json:"fk"`
	CCMappings []CellStat      `json:"cc_mappings"`
}

// Matrix is the full FK×CC grid of a scope.
// Initialized is false when the competency catalog has not been seeded yet.
type Matrix struct {
	Initialized         bool              `json:"initialized"`
	FoundationKnowledge []competency.Area `json:"foundation_knowledge"`
	ClinicalContent     []competency.Area `json:"clinical_content"`
	Matrix              []MatrixRow       `json:"matrix"`
}

// Report summarizes a full recalculation.
type Report struct {
	Scope    Scope         `json:"scope"`
	Cells    int           `json:"cells"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job tracks a background recalculation.
type Job struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	CourseID    string     `json:"course_id,omitempty"`
	Status      JobStatus  `json:"status"`
	Cells       int        `json:"cells"`
	FailedCells int        `json:"failed_cells"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`            // UTC
	FinishedAt  *time.Time `json:"finished_at,omitempty"` // UTC
}

func (j Job) Done() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}
