package competency

import (
	"fmt"
	"time"
)

// Kind is one of the two INBDE competency variants.
type Kind string

const (
	KindFoundationKnowledge Kind = "foundation_knowledge"
	KindClinicalContent     Kind = "clinical_content"
)

func (k Kind) prefix() string {
	if k == KindFoundationKnowledge {
		return "FK"
	}
	return "CC"
}

// Category groups Clinical Content areas; Foundation Knowledge areas have none.
type Category string

const (
	CategoryDiagnosisTreatmentPlanning Category = "diagnosis_treatment_planning"
	CategoryOralHealthManagement       Category = "oral_health_management"
	CategoryPracticeProfession         Category = "practice_profession"
)

// Area is a Foundation Knowledge or Clinical Content competency area.
// Areas are immutable once seeded and their Number is never reused.
type Area struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Number      int       `json:"number"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// AreaID returns the stable ID of the area `number` of the given kind (e.g. "FK1", "CC42").
func AreaID(kind Kind, number int) string {
	return fmt.Sprintf("%s%d", kind.prefix(), number)
}
