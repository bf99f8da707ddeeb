package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/uischema"
)

// EntityType names the kind of record a schema extends.
type EntityType string

const (
	EntityCompany    EntityType = "Company"
	EntityEmployee   EntityType = "Employee"
	EntityCandidate  EntityType = "Candidate"
	EntityDepartment EntityType = "Department"
	EntityPosition   EntityType = "Position"
)

var entityTypes = []EntityType{EntityCompany, EntityEmployee, EntityCandidate, EntityDepartment, EntityPosition}

// EntityTypes lists the supported entity types.
func EntityTypes() []EntityType {
	return append([]EntityType(nil), entityTypes...)
}

// ParseEntityType matches name case-insensitively against the supported set.
func ParseEntityType(name string) (EntityType, error) {
	trimmed := strings.TrimSpace(name)
	for _, candidate := range entityTypes {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, name)
}

// Valid reports whether t is one of the supported entity types.
func (t EntityType) Valid() bool {
	for _, candidate := range entityTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Schema is one immutable version of a custom-field definition.
type Schema struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	EntityType     EntityType            `json:"entity_type"`
	Definition     *fieldspec.ObjectSpec `json:"definition"`
	UIHints        uischema.Hints        `json:"ui_hints,omitempty"`
	CompanyID      *int64                `json:"company_id"`
	IsSystem       bool                  `json:"is_system"`
	Version        int                   `json:"version"`
	ParentSchemaID *string               `json:"parent_schema_id"`
	Remark         string                `json:"remark,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// Clone returns a deep copy that shares nothing with s.
func (s Schema) Clone() Schema {
	out := s
	out.Definition = fieldspec.Clone(s.Definition)
	out.UIHints = s.UIHints.Clone()
	if s.CompanyID != nil {
		id := *s.CompanyID
		out.CompanyID = &id
	}
	if s.ParentSchemaID != nil {
		parent := *s.ParentSchemaID
		out.ParentSchemaID = &parent
	}
	return out
}

// OwnedBy reports whether the schema is tenant-scoped to companyID.
func (s Schema) OwnedBy(companyID *int64) bool {
	return s.CompanyID != nil && companyID != nil && *s.CompanyID == *companyID
}

// Caller identifies who performs a registry operation.
type Caller struct {
	CompanyID  *int64
	Privileged bool
}

// Tenant returns a non-privileged caller scoped to companyID.
func Tenant(companyID int64) Caller {
	return Caller{CompanyID: &companyID}
}

// Admin returns a privileged caller.
func Admin() Caller {
	return Caller{Privileged: true}
}

// CanRead reports whether the caller may see s.
func (c Caller) CanRead(s Schema) bool {
	if c.Privileged || s.IsSystem || s.CompanyID == nil {
		return true
	}
	return s.OwnedBy(c.CompanyID)
}

// CreateInput carries the fields accepted by Create.
type CreateInput struct {
	Name       string                `json:"name"`
	EntityType EntityType            `json:"entity_type"`
	Definition *fieldspec.ObjectSpec `json:"definition"`
	UIHints    uischema.Hints        `json:"ui_hints,omitempty"`
	CompanyID  *int64                `json:"company_id,omitempty"`
	IsSystem   bool                  `json:"is_system,omitempty"`
	Remark     string                `json:"remark,omitempty"`
}

// Patch carries the optional fields accepted by Update. Nil means unchanged.
type Patch struct {
	Name       *string               `json:"name,omitempty"`
	Definition *fieldspec.ObjectSpec `json:"definition,omitempty"`
	UIHints    *uischema.Hints       `json:"ui_hints,omitempty"`
	Remark     *string               `json:"remark,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Definition == nil && p.UIHints == nil && p.Remark == nil
}

// CloneInput carries the fields accepted by Clone.
type CloneInput struct {
	SourceSchemaID  string  `json:"source_schema_id"`
	TargetCompanyID int64   `json:"target_company_id"`
	Name            *string `json:"name,omitempty"`
}

// Query filters ListByEntityType. A nil CompanyID matches every tenant
// unless SystemOnly is set.
type Query struct {
	EntityType    EntityType
	CompanyID     *int64
	IncludeSystem bool
	SystemOnly    bool
	Page          int
	Limit         int
}

// Matches applies the tenant and system filters of q to s.
func (q Query) Matches(s Schema) bool {
	if s.EntityType != q.EntityType {
		return false
	}
	if s.IsSystem {
		return q.IncludeSystem || q.SystemOnly
	}
	if q.SystemOnly {
		return false
	}
	if q.CompanyID == nil {
		return true
	}
	return s.OwnedBy(q.CompanyID)
}

// Offset converts the one-based page into a row offset.
func (q Query) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Page is one slice of a schema listing.
type Page struct {
	Items      []Schema `json:"items"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
}

func newPage(items []Schema, total int, q Query) Page {
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	if items == nil {
		items = []Schema{}
	}
	return Page{Items: items, Total: total, TotalPages: pages, Page: q.Page, Limit: q.Limit}
}
