// Package catalog holds the local mirror of the published course hierarchy.
// Each row carries two weak references to remote state: github_path points at
// the GitHub artifact and site_id at the LMS record. Deleting a row never
// implies the remote objects are gone; the publisher attempts those deletes
// first and removes the row regardless of their outcome.
package catalog

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("catalog: conflict")
)

// Course is the root of the hierarchy. Its github_path is the repository name;
// descendant rows prefix their repository-relative file path with it.
type Course struct {
	ID          int64    `gorm:"column:id;primaryKey;autoIncrement"`
	GitHubPath  string   `gorm:"column:github_path;size:500;uniqueIndex;not null"`
	Title       string   `gorm:"column:title;size:255;uniqueIndex;not null"`
	Description string   `gorm:"column:description;type:text"`
	SiteID      *int64   `gorm:"column:site_id"`
	Modules     []Module `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Course) TableName() string {
	return "courses"
}

// Module is a folder inside the course repository plus an LMS module record.
type Module struct {
	ID          int64    `gorm:"column:id;primaryKey;autoIncrement"`
	CourseID    int64    `gorm:"column:course_id;not null;index"`
	GitHubPath  string   `gorm:"column:github_path;size:500;uniqueIndex;not null"`
	Title       string   `gorm:"column:title;size:255;not null"`
	Description string   `gorm:"column:description;type:text"`
	SiteID      *int64   `gorm:"column:site_id"`
	Lessons     []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Module) TableName() string {
	return "modules"
}

// Lesson is a markdown file in the module folder plus an LMS lesson record.
type Lesson struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ModuleID   int64  `gorm:"column:module_id;not null;index"`
	GitHubPath string `gorm:"column:github_path;size:500;uniqueIndex;not null"`
	Title      string `gorm:"column:title;size:255;not null"`
	RawURL     string `gorm:"column:raw_url;size:1000"`
	SiteID     *int64 `gorm:"column:site_id"`
	Tasks      []Task `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Lesson) TableName() string {
	return "lessons"
}

// Task is a markdown assignment file plus an LMS step record.
type Task struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	LessonID   int64  `gorm:"column:lesson_id;not null;index"`
	GitHubPath string `gorm:"column:github_path;size:500;uniqueIndex;not null"`
	Title      string `gorm:"column:title;size:255;not null"`
	RawURL     string `gorm:"column:raw_url;size:1000"`
	SiteID     *int64 `gorm:"column:site_id"`
}

// TableName provides the explicit table binding for GORM.
func (Task) TableName() string {
	return "tasks"
}
