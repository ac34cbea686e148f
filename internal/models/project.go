package models

import (
	"gorm.io/datatypes"
)

// Project is a submitted showcase entry
type Project struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Name        string         `gorm:"size:255;not null"`
	Description string         `gorm:"type:text;not null"`
	Date        datatypes.Date `gorm:"not null"`
	Status      ProjectStatus  `gorm:"not null;default:W;index"`
	Author      string         `gorm:"size:255;not null;index"`
	Thumbnail   *Thumbnail     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Media       []Media        `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Thumbnail is the single cover image of a project
type Thumbnail struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	ProjectID string `gorm:"column:id_pro;type:char(36);not null;uniqueIndex"`
	Name      string `gorm:"size:512;not null"`
}

// Media is an additional file attached to a project
type Media struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	ProjectID string `gorm:"column:id_pro;type:char(36);not null;index:idx_media_project_name"`
	Name      string `gorm:"size:512;not null;index:idx_media_project_name"`
}

// Tagged links a project to a tag
type Tagged struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	ProjectID string `gorm:"column:id_pro;type:char(36);not null;index"`
	TagID     string `gorm:"column:id_tag;type:char(36);not null;index"`
}

// TableName overrides the table name for Project
func (Project) TableName() string {
	return "projects"
}

// TableName overrides the table name for Thumbnail
func (Thumbnail) TableName() string {
	return "thumbnails"
}

// TableName overrides the table name for Media
func (Media) TableName() string {
	return "media"
}

// TableName overrides the table name for Tagged
func (Tagged) TableName() string {
	return "taged"
}
