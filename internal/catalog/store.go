package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// StoreError carries an operation.reason code alongside the underlying cause.
type StoreError struct {
	code string
	err  error
}

func (e *StoreError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

func (e *StoreError) Code() string {
	return e.code
}

const (
	opStoreNew      = "catalog.store.new"
	opAddCourse     = "catalog.add_course"
	opGetCourse     = "catalog.get_course"
	opListCourses   = "catalog.list_courses"
	opUpdateCourse  = "catalog.update_course"
	opDeleteCourse  = "catalog.delete_course"
	opAddModule     = "catalog.add_module"
	opGetModule     = "catalog.get_module"
	opListModules   = "catalog.list_modules"
	opDeleteModule  = "catalog.delete_module"
	opAddLesson     = "catalog.add_lesson"
	opGetLesson     = "catalog.get_lesson"
	opListLessons   = "catalog.list_lessons"
	opUpdateLesson  = "catalog.update_lesson"
	opDeleteLesson  = "catalog.delete_lesson"
	opAddTask       = "catalog.add_task"
	opGetTask       = "catalog.get_task"
	opListTasks     = "catalog.list_tasks"
	opUpdateTask    = "catalog.update_task"
	opDeleteTask    = "catalog.delete_task"
	opListHierarchy = "catalog.list_hierarchy"
)

func newStoreError(operation, reason string, cause error) error {
	return &StoreError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// StoreConfig describes the dependencies of the local cache.
type StoreConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Store implements the local cache over the four catalog tables.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore validates the configuration and returns a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, newStoreError(opStoreNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{db: cfg.Database, logger: logger}, nil
}

// AddCourseParams carries the fields recorded after a course is published.
type AddCourseParams struct {
	GitHubPath  string
	Title       string
	Description string
	SiteID      *int64
}

// AddCourse inserts a course row and returns its local id.
func (s *Store) AddCourse(ctx context.Context, params AddCourseParams) (int64, error) {
	course := Course{
		GitHubPath:  params.GitHubPath,
		Title:       params.Title,
		Description: params.Description,
		SiteID:      params.SiteID,
	}
	if err := s.db.WithContext(ctx).Create(&course).Error; err != nil {
		return 0, s.writeError(opAddCourse, err, zap.String("title", params.Title))
	}
	return course.ID, nil
}

// CourseByID loads a single course row.
func (s *Store) CourseByID(ctx context.Context, id int64) (Course, error) {
	var course Course
	if err := s.db.WithContext(ctx).Take(&course, id).Error; err != nil {
		return Course{}, s.readError(opGetCourse, err, zap.Int64("course_id", id))
	}
	return course, nil
}

// Courses returns all courses sorted by title. The cache is a display mirror;
// pedagogical ordering lives in the LMS records.
func (s *Store) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := s.db.WithContext(ctx).Order("title").Find(&courses).Error; err != nil {
		return nil, s.readError(opListCourses, err)
	}
	return courses, nil
}

// CourseUpdates carries optional field changes; nil fields are untouched.
type CourseUpdates struct {
	Description *string
	SiteID      *int64
}

// UpdateCourse applies the provided field changes to a course row.
func (s *Store) UpdateCourse(ctx context.Context, id int64, updates CourseUpdates) error {
	fields := map[string]interface{}{}
	if updates.Description != nil {
		fields["description"] = *updates.Description
	}
	if updates.SiteID != nil {
		fields["site_id"] = *updates.SiteID
	}
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&Course{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return s.writeError(opUpdateCourse, result.Error, zap.Int64("course_id", id))
	}
	if result.RowsAffected == 0 {
		return newStoreError(opUpdateCourse, "not_found", ErrNotFound)
	}
	return nil
}

// DeleteCourse removes a course and all descendant rows, deepest first.
// Each level is deleted explicitly so the cascade does not depend on the
// SQLite foreign_keys pragma being active on the connection.
func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var moduleIDs []int64
		if err := tx.Model(&Module{}).Where("course_id = ?", id).Pluck("id", &moduleIDs).Error; err != nil {
			return err
		}
		if len(moduleIDs) > 0 {
			if err := deleteModuleSubtrees(tx, moduleIDs); err != nil {
				return err
			}
		}
		return tx.Delete(&Course{}, id).Error
	})
	if err != nil {
		return s.writeError(opDeleteCourse, err, zap.Int64("course_id", id))
	}
	return nil
}

// AddModuleParams carries the fields recorded after a module is published.
type AddModuleParams struct {
	CourseID    int64
	GitHubPath  string
	Title       string
	Description string
	SiteID      *int64
}

// AddModule inserts a module row and returns its local id.
func (s *Store) AddModule(ctx context.Context, params AddModuleParams) (int64, error) {
	module := Module{
		CourseID:    params.CourseID,
		GitHubPath:  params.GitHubPath,
		Title:       params.Title,
		Description: params.Description,
		SiteID:      params.SiteID,
	}
	if err := s.db.WithContext(ctx).Create(&module).Error; err != nil {
		return 0, s.writeError(opAddModule, err, zap.String("title", params.Title))
	}
	return module.ID, nil
}

// ModuleByID loads a single module row.
func (s *Store) ModuleByID(ctx context.Context, id int64) (Module, error) {
	var module Module
	if err := s.db.WithContext(ctx).Take(&module, id).Error; err != nil {
		return Module{}, s.readError(opGetModule, err, zap.Int64("module_id", id))
	}
	return module, nil
}

// ModulesByCourse returns a course's modules sorted by title.
func (s *Store) ModulesByCourse(ctx context.Context, courseID int64) ([]Module, error) {
	var modules []Module
	if err := s.db.WithContext(ctx).Where("course_id = ?", courseID).Order("title").Find(&modules).Error; err != nil {
		return nil, s.readError(opListModules, err, zap.Int64("course_id", courseID))
	}
	return modules, nil
}

// DeleteModule removes a module and all descendant rows, deepest first.
func (s *Store) DeleteModule(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteModuleSubtrees(tx, []int64{id})
	})
	if err != nil {
		return s.writeError(opDeleteModule, err, zap.Int64("module_id", id))
	}
	return nil
}

// AddLessonParams carries the fields recorded after a lesson is published.
type AddLessonParams struct {
	ModuleID   int64
	GitHubPath string
	Title      string
	RawURL     string
	SiteID     *int64
}

// AddLesson inserts a lesson row and returns its local id.
func (s *Store) AddLesson(ctx context.Context, params AddLessonParams) (int64, error) {
	lesson := Lesson{
		ModuleID:   params.ModuleID,
		GitHubPath: params.GitHubPath,
		Title:      params.Title,
		RawURL:     params.RawURL,
		SiteID:     params.SiteID,
	}
	if err := s.db.WithContext(ctx).Create(&lesson).Error; err != nil {
		return 0, s.writeError(opAddLesson, err, zap.String("title", params.Title))
	}
	return lesson.ID, nil
}

// LessonByID loads a single lesson row.
func (s *Store) LessonByID(ctx context.Context, id int64) (Lesson, error) {
	var lesson Lesson
	if err := s.db.WithContext(ctx).Take(&lesson, id).Error; err != nil {
		return Lesson{}, s.readError(opGetLesson, err, zap.Int64("lesson_id", id))
	}
	return lesson, nil
}

// LessonsByModule returns a module's lessons sorted by title.
func (s *Store) LessonsByModule(ctx context.Context, moduleID int64) ([]Lesson, error) {
	var lessons []Lesson
	if err := s.db.WithContext(ctx).Where("module_id = ?", moduleID).Order("title").Find(&lessons).Error; err != nil {
		return nil, s.readError(opListLessons, err, zap.Int64("module_id", moduleID))
	}
	return lessons, nil
}

// LessonUpdates carries optional field changes; nil fields are untouched.
type LessonUpdates struct {
	GitHubPath *string
	RawURL     *string
	SiteID     *int64
}

// UpdateLesson applies the provided field changes to a lesson row.
func (s *Store) UpdateLesson(ctx context.Context, id int64, updates LessonUpdates) error {
	fields := map[string]interface{}{}
	if updates.GitHubPath != nil {
		fields["github_path"] = *updates.GitHubPath
	}
	if updates.RawURL != nil {
		fields["raw_url"] = *updates.RawURL
	}
	if updates.SiteID != nil {
		fields["site_id"] = *updates.SiteID
	}
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&Lesson{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return s.writeError(opUpdateLesson, result.Error, zap.Int64("lesson_id", id))
	}
	if result.RowsAffected == 0 {
		return newStoreError(opUpdateLesson, "not_found", ErrNotFound)
	}
	return nil
}

// DeleteLesson removes a lesson and its task rows.
func (s *Store) DeleteLesson(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Lesson{}, id).Error
	})
	if err != nil {
		return s.writeError(opDeleteLesson, err, zap.Int64("lesson_id", id))
	}
	return nil
}

// AddTaskParams carries the fields recorded after a task is published.
type AddTaskParams struct {
	LessonID   int64
	GitHubPath string
	Title      string
	RawURL     string
	SiteID     *int64
}

// AddTask inserts a task row and returns its local id.
func (s *Store) AddTask(ctx context.Context, params AddTaskParams) (int64, error) {
	task := Task{
		LessonID:   params.LessonID,
		GitHubPath: params.GitHubPath,
		Title:      params.Title,
		RawURL:     params.RawURL,
		SiteID:     params.SiteID,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return 0, s.writeError(opAddTask, err, zap.String("title", params.Title))
	}
	return task.ID, nil
}

// TaskByID loads a single task row.
func (s *Store) TaskByID(ctx context.Context, id int64) (Task, error) {
	var task Task
	if err := s.db.WithContext(ctx).Take(&task, id).Error; err != nil {
		return Task{}, s.readError(opGetTask, err, zap.Int64("task_id", id))
	}
	return task, nil
}

// TasksByLesson returns a lesson's tasks sorted by title.
func (s *Store) TasksByLesson(ctx context.Context, lessonID int64) ([]Task, error) {
	var tasks []Task
	if err := s.db.WithContext(ctx).Where("lesson_id = ?", lessonID).Order("title").Find(&tasks).Error; err != nil {
		return nil, s.readError(opListTasks, err, zap.Int64("lesson_id", lessonID))
	}
	return tasks, nil
}

// TasksByModule returns every task under a module, used for sibling title checks.
func (s *Store) TasksByModule(ctx context.Context, moduleID int64) ([]Task, error) {
	var tasks []Task
	err := s.db.WithContext(ctx).
		Joins("JOIN lessons ON lessons.id = tasks.lesson_id").
		Where("lessons.module_id = ?", moduleID).
		Order("tasks.title").
		Find(&tasks).Error
	if err != nil {
		return nil, s.readError(opListTasks, err, zap.Int64("module_id", moduleID))
	}
	return tasks, nil
}

// TaskUpdates carries optional field changes; nil fields are untouched.
type TaskUpdates struct {
	GitHubPath *string
	RawURL     *string
	SiteID     *int64
}

// UpdateTask applies the provided field changes to a task row.
func (s *Store) UpdateTask(ctx context.Context, id int64, updates TaskUpdates) error {
	fields := map[string]interface{}{}
	if updates.GitHubPath != nil {
		fields["github_path"] = *updates.GitHubPath
	}
	if updates.RawURL != nil {
		fields["raw_url"] = *updates.RawURL
	}
	if updates.SiteID != nil {
		fields["site_id"] = *updates.SiteID
	}
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&Task{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return s.writeError(opUpdateTask, result.Error, zap.Int64("task_id", id))
	}
	if result.RowsAffected == 0 {
		return newStoreError(opUpdateTask, "not_found", ErrNotFound)
	}
	return nil
}

// DeleteTask removes a single task row.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&Task{}, id).Error; err != nil {
		return s.writeError(opDeleteTask, err, zap.Int64("task_id", id))
	}
	return nil
}

// Tree returns the full hierarchy for the sidebar, each level sorted by title.
func (s *Store) Tree(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := s.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Preload("Modules.Lessons.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Order("title").
		Find(&courses).Error
	if err != nil {
		return nil, s.readError(opListHierarchy, err)
	}
	return courses, nil
}

func deleteModuleSubtrees(tx *gorm.DB, moduleIDs []int64) error {
	var lessonIDs []int64
	if err := tx.Model(&Lesson{}).Where("module_id IN ?", moduleIDs).Pluck("id", &lessonIDs).Error; err != nil {
		return err
	}
	if len(lessonIDs) > 0 {
		if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", lessonIDs).Delete(&Lesson{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", moduleIDs).Delete(&Module{}).Error
}

func (s *Store) readError(operation string, err error, fields ...zap.Field) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newStoreError(operation, "not_found", ErrNotFound)
	}
	s.logError(operation, "query_failed", err, fields...)
	return newStoreError(operation, "query_failed", err)
}

func (s *Store) writeError(operation string, err error, fields ...zap.Field) error {
	if isUniqueViolation(err) {
		return newStoreError(operation, "conflict", ErrConflict)
	}
	s.logError(operation, "write_failed", err, fields...)
	return newStoreError(operation, "write_failed", err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("catalog store error", attrs...)
}
