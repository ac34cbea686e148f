package models

// Tag is a label that can be attached to many projects.
// Added marks a tag an administrator has approved; user-submitted tags start unapproved.
type Tag struct {
	ID    string `gorm:"type:char(36);primaryKey" json:"id"`
	Name  string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Added bool   `gorm:"not null;default:false" json:"added"`
}

// Admin is an entry of the administrators allow-list
type Admin struct {
	Username string `gorm:"size:255;primaryKey"`
}

// TableName overrides the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// TableName overrides the table name for Admin
func (Admin) TableName() string {
	return "admins"
}
