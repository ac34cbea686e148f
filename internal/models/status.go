package models

import (
	"database/sql/driver"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ProjectStatus is the moderation state of a project.
// The stored form is the single character code used by the projects table.
type ProjectStatus string

const (
	StatusWaiting  ProjectStatus = "W"
	StatusApproved ProjectStatus = "A"
	StatusDenied   ProjectStatus = "D"
)

// ParseProjectStatus maps a stored code to a ProjectStatus.
func ParseProjectStatus(code string) (ProjectStatus, error) {
	switch ProjectStatus(code) {
	case StatusWaiting, StatusApproved, StatusDenied:
		return ProjectStatus(code), nil
	}
	return "", fmt.Errorf("unknown project status %q", code)
}

// Valid reports whether s is one of the known states.
func (s ProjectStatus) Valid() bool {
	_, err := ParseProjectStatus(string(s))
	return err == nil
}

// CheckupLabel is the label shown on the moderation screens.
func (s ProjectStatus) CheckupLabel() string {
	switch s {
	case StatusWaiting:
		return "Waiting for checkup."
	case StatusApproved:
		return "Approved."
	case StatusDenied:
		return "Denied."
	}
	return "Unknown."
}

// OwnerLabel is the label shown to the author in their own project list.
func (s ProjectStatus) OwnerLabel() string {
	switch s {
	case StatusWaiting:
		return "Waiting for check."
	case StatusApproved:
		return "Approved."
	case StatusDenied:
		return "Denied."
	}
	return "Unknown."
}

// Value rejects unknown codes before they reach the database
func (s ProjectStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown project status %q", string(s))
	}
	return string(s), nil
}

// Scan reads the stored code, failing on anything outside the enum
func (s *ProjectStatus) Scan(value interface{}) error {
	var code string
	switch v := value.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ProjectStatus", value)
	}
	parsed, err := ParseProjectStatus(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// GormDBDataType keeps the column a single fixed-width character on every dialect.
func (ProjectStatus) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlserver", "mssql":
		return "NCHAR(1)"
	case "sqlite":
		return "TEXT"
	}
	return "CHAR(1)"
}
