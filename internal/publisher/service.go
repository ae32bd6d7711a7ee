// Package publisher orchestrates the three backends behind every authoring
// action: the GitHub repository holding the markdown content, the Gushub LMS
// records pointing at it, and the local catalog mirror. Creates run as a
// sequence of compensated steps with the catalog row always last, so a row
// exists only when every remote write succeeded. Deletes run remote-first but
// remove the local row regardless of the remote outcome, trading possible
// remote orphans, which are logged, for a cache that never resurrects deleted
// entries.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/gushub/manager/internal/catalog"
	"github.com/gushub/manager/internal/naming"
	ghadapter "github.com/gushub/manager/internal/remote/github"
	"github.com/gushub/manager/internal/remote/gushub"
)

var (
	errMissingStore    = errors.New("catalog store is required")
	errMissingContent  = errors.New("content store is required")
	errMissingMetadata = errors.New("metadata store is required")
	noOpLogger         = zap.NewNop()
)

const (
	opCreateCourse = "publisher.create_course"
	opDeleteCourse = "publisher.delete_course"
	opCreateModule = "publisher.create_module"
	opDeleteModule = "publisher.delete_module"
	opCreateLesson = "publisher.create_lesson"
	opUpdateLesson = "publisher.update_lesson"
	opDeleteLesson = "publisher.delete_lesson"
	opCreateTask   = "publisher.create_task"
	opUpdateTask   = "publisher.update_task"
	opDeleteTask   = "publisher.delete_task"
)

// ContentStore is the GitHub side of publishing.
type ContentStore interface {
	Owner(ctx context.Context) (string, error)
	CreateRepository(ctx context.Context, name, description string) (ghadapter.RepositoryInfo, error)
	DeleteRepository(ctx context.Context, name string) error
	CreateFile(ctx context.Context, repo, path, content, message string) (string, error)
	ReadFile(ctx context.Context, repo, path string) (ghadapter.FileContent, error)
	UpdateFile(ctx context.Context, repo, path, content, revisionToken, message string) error
	DeleteFile(ctx context.Context, repo, path, revisionToken, message string) error
	ListFiles(ctx context.Context, repo, dir string) ([]string, error)
}

// MetadataStore is the Gushub LMS side of publishing.
type MetadataStore interface {
	CreateCourse(ctx context.Context, data gushub.CourseData) (gushub.CourseRecord, error)
	DeleteCourse(ctx context.Context, courseID int64) error
	CreateModule(ctx context.Context, courseID int64, data gushub.ModuleData) (gushub.ModuleRecord, error)
	DeleteModule(ctx context.Context, moduleID int64) error
	CreateLesson(ctx context.Context, moduleID int64, data gushub.LessonData) (gushub.LessonRecord, error)
	DeleteLesson(ctx context.Context, lessonID int64) error
	CreateStep(ctx context.Context, lessonID int64, data gushub.StepData) (gushub.StepRecord, error)
	DeleteStep(ctx context.Context, stepID int64) error
	UploadPhoto(ctx context.Context, filename string, data []byte) (gushub.UploadResult, error)
}

// ServiceConfig describes the dependencies of the publishing orchestrator.
type ServiceConfig struct {
	Store    *catalog.Store
	Content  ContentStore
	Metadata MetadataStore
	Logger   *zap.Logger
}

// Service coordinates the catalog, the content store, and the metadata store.
type Service struct {
	store    *catalog.Store
	content  ContentStore
	metadata MetadataStore
	logger   *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Content == nil {
		return nil, errMissingContent
	}
	if cfg.Metadata == nil {
		return nil, errMissingMetadata
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		store:    cfg.Store,
		content:  cfg.Content,
		metadata: cfg.Metadata,
		logger:   logger,
	}, nil
}

// CreateCourseParams carries the authored fields of a new course.
type CreateCourseParams struct {
	Title         string
	Description   string
	CoverImage    []byte
	CoverFilename string
}

// CreateCourse publishes a course: a GitHub repository named by the title's
// slug with a README, an optional cover upload, the LMS course record, and
// finally the catalog row.
func (s *Service) CreateCourse(ctx context.Context, params CreateCourseParams) (catalog.Course, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return catalog.Course{}, validationError(opCreateCourse, "title is required")
	}
	existing, err := s.store.Courses(ctx)
	if err != nil {
		return catalog.Course{}, s.wrap(opCreateCourse, err)
	}
	for _, course := range existing {
		if strings.EqualFold(course.Title, title) {
			return catalog.Course{}, validationError(opCreateCourse, "course %q already exists", title)
		}
	}
	slug := naming.Slugify(title)
	if slug == "" {
		return catalog.Course{}, validationError(opCreateCourse, "title %q has no representable characters", title)
	}

	var (
		record   gushub.CourseRecord
		imageURL string
		courseID int64
	)
	steps := []sagaStep{
		{
			name: "github.create_repository",
			run: func(ctx context.Context) error {
				_, err := s.content.CreateRepository(ctx, slug, title)
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.content.DeleteRepository(ctx, slug)
			},
		},
		{
			// Covered by the repository compensation.
			name: "github.create_readme",
			run: func(ctx context.Context) error {
				_, err := s.content.CreateFile(ctx, slug, "README.md",
					readmeBody(title, params.Description), "Add course README")
				return err
			},
		},
	}
	if len(params.CoverImage) > 0 {
		steps = append(steps, sagaStep{
			name: "gushub.upload_cover",
			run: func(ctx context.Context) error {
				result, err := s.metadata.UploadPhoto(ctx, params.CoverFilename, params.CoverImage)
				if err != nil {
					return err
				}
				imageURL = result.URL
				return nil
			},
		})
	}
	steps = append(steps,
		sagaStep{
			name: "gushub.create_course",
			run: func(ctx context.Context) error {
				var err error
				record, err = s.metadata.CreateCourse(ctx, gushub.CourseData{
					Title:       title,
					Description: params.Description,
					Image:       imageURL,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.metadata.DeleteCourse(ctx, record.ID)
			},
		},
		sagaStep{
			name: "catalog.add_course",
			run: func(ctx context.Context) error {
				var err error
				courseID, err = s.store.AddCourse(ctx, catalog.AddCourseParams{
					GitHubPath:  slug,
					Title:       title,
					Description: params.Description,
					SiteID:      &record.ID,
				})
				return err
			},
		},
	)

	if err := s.runSaga(ctx, opCreateCourse, steps); err != nil {
		return catalog.Course{}, s.wrap(opCreateCourse, err)
	}
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return catalog.Course{}, s.wrap(opCreateCourse, err)
	}
	return course, nil
}

// DeleteCourse removes the LMS record and the repository best-effort, then
// removes the catalog subtree unconditionally.
func (s *Service) DeleteCourse(ctx context.Context, courseID int64) error {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return s.wrap(opDeleteCourse, err)
	}

	var remoteErrs []error
	if course.SiteID != nil {
		if err := s.metadata.DeleteCourse(ctx, *course.SiteID); err != nil && !errors.Is(err, gushub.ErrNotFound) {
			s.logOrphan(opDeleteCourse, "lms course", err, zap.Int64("site_id", *course.SiteID))
			remoteErrs = append(remoteErrs, err)
		}
	}
	if err := s.content.DeleteRepository(ctx, course.GitHubPath); err != nil && !errors.Is(err, ghadapter.ErrNotFound) {
		s.logOrphan(opDeleteCourse, "repository", err, zap.String("repository", course.GitHubPath))
		remoteErrs = append(remoteErrs, err)
	}

	if err := s.store.DeleteCourse(ctx, courseID); err != nil {
		return s.wrap(opDeleteCourse, err)
	}
	if len(remoteErrs) > 0 {
		return newError(KindPartialFailure, opDeleteCourse, errors.Join(remoteErrs...))
	}
	return nil
}

// CreateModuleParams carries the authored fields of a new module.
type CreateModuleParams struct {
	Title       string
	Description string
}

// CreateModule publishes a module: a folder in the course repository anchored
// by a README, the LMS module record, and finally the catalog row.
func (s *Service) CreateModule(ctx context.Context, courseID int64, params CreateModuleParams) (catalog.Module, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return catalog.Module{}, s.wrap(opCreateModule, err)
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return catalog.Module{}, validationError(opCreateModule, "title is required")
	}
	siblings, err := s.store.ModulesByCourse(ctx, courseID)
	if err != nil {
		return catalog.Module{}, s.wrap(opCreateModule, err)
	}
	for _, module := range siblings {
		if strings.EqualFold(module.Title, title) {
			return catalog.Module{}, validationError(opCreateModule,
				"module %q already exists in course %q", title, course.Title)
		}
	}
	slug := naming.Slugify(title)
	if slug == "" {
		return catalog.Module{}, validationError(opCreateModule, "title %q has no representable characters", title)
	}
	siteID, err := siteIDOf(opCreateModule, "course", course.SiteID)
	if err != nil {
		return catalog.Module{}, err
	}

	repo := course.GitHubPath
	readmePath := slug + "/README.md"
	var (
		record   gushub.ModuleRecord
		moduleID int64
	)
	steps := []sagaStep{
		{
			name: "github.create_readme",
			run: func(ctx context.Context) error {
				_, err := s.content.CreateFile(ctx, repo, readmePath,
					readmeBody(title, params.Description), "Add module "+title)
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.deleteFile(ctx, repo, readmePath)
			},
		},
		{
			name: "gushub.create_module",
			run: func(ctx context.Context) error {
				var err error
				record, err = s.metadata.CreateModule(ctx, siteID, gushub.ModuleData{
					Title:       title,
					Description: params.Description,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.metadata.DeleteModule(ctx, record.ID)
			},
		},
		{
			name: "catalog.add_module",
			run: func(ctx context.Context) error {
				var err error
				moduleID, err = s.store.AddModule(ctx, catalog.AddModuleParams{
					CourseID:    courseID,
					GitHubPath:  repo + "/" + slug,
					Title:       title,
					Description: params.Description,
					SiteID:      &record.ID,
				})
				return err
			},
		},
	}

	if err := s.runSaga(ctx, opCreateModule, steps); err != nil {
		return catalog.Module{}, s.wrap(opCreateModule, err)
	}
	module, err := s.store.ModuleByID(ctx, moduleID)
	if err != nil {
		return catalog.Module{}, s.wrap(opCreateModule, err)
	}
	return module, nil
}

// DeleteModule removes the LMS record and every file under the module folder
// best-effort, then removes the catalog subtree unconditionally.
func (s *Service) DeleteModule(ctx context.Context, moduleID int64) error {
	module, err := s.store.ModuleByID(ctx, moduleID)
	if err != nil {
		return s.wrap(opDeleteModule, err)
	}

	var remoteErrs []error
	if module.SiteID != nil {
		if err := s.metadata.DeleteModule(ctx, *module.SiteID); err != nil && !errors.Is(err, gushub.ErrNotFound) {
			s.logOrphan(opDeleteModule, "lms module", err, zap.Int64("site_id", *module.SiteID))
			remoteErrs = append(remoteErrs, err)
		}
	}
	repo, dir := splitLocator(module.GitHubPath)
	paths, err := s.content.ListFiles(ctx, repo, dir)
	if err != nil && !errors.Is(err, ghadapter.ErrNotFound) {
		s.logOrphan(opDeleteModule, "folder listing", err, zap.String("dir", dir))
		remoteErrs = append(remoteErrs, err)
	}
	for _, filePath := range paths {
		if err := s.deleteFile(ctx, repo, filePath); err != nil && !errors.Is(err, ghadapter.ErrNotFound) {
			s.logOrphan(opDeleteModule, "file", err, zap.String("path", filePath))
			remoteErrs = append(remoteErrs, err)
		}
	}

	if err := s.store.DeleteModule(ctx, moduleID); err != nil {
		return s.wrap(opDeleteModule, err)
	}
	if len(remoteErrs) > 0 {
		return newError(KindPartialFailure, opDeleteModule, errors.Join(remoteErrs...))
	}
	return nil
}

// CreateLessonParams carries the authored fields of a new lesson.
type CreateLessonParams struct {
	Title   string
	Content string
}

// CreateLesson publishes a lesson: a markdown file in the module folder, the
// LMS lesson record pointing at its raw URL, and finally the catalog row.
func (s *Service) CreateLesson(ctx context.Context, moduleID int64, params CreateLessonParams) (catalog.Lesson, error) {
	module, err := s.store.ModuleByID(ctx, moduleID)
	if err != nil {
		return catalog.Lesson{}, s.wrap(opCreateLesson, err)
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return catalog.Lesson{}, validationError(opCreateLesson, "title is required")
	}
	if err := s.checkModuleTitleFree(ctx, opCreateLesson, moduleID, title); err != nil {
		return catalog.Lesson{}, err
	}
	slug := naming.Slugify(title)
	if slug == "" {
		return catalog.Lesson{}, validationError(opCreateLesson, "title %q has no representable characters", title)
	}
	siteID, err := siteIDOf(opCreateLesson, "module", module.SiteID)
	if err != nil {
		return catalog.Lesson{}, err
	}

	repo, dir := splitLocator(module.GitHubPath)
	filePath := dir + "/" + slug + ".md"
	owner, err := s.content.Owner(ctx)
	if err != nil {
		return catalog.Lesson{}, s.wrap(opCreateLesson, err)
	}
	rawURL := rawContentURL(owner, repo, filePath)

	var (
		record   gushub.LessonRecord
		lessonID int64
	)
	steps := []sagaStep{
		{
			name: "github.create_file",
			run: func(ctx context.Context) error {
				_, err := s.content.CreateFile(ctx, repo, filePath,
					markdownBody(title, params.Content), "Add lesson "+title)
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.deleteFile(ctx, repo, filePath)
			},
		},
		{
			name: "gushub.create_lesson",
			run: func(ctx context.Context) error {
				var err error
				record, err = s.metadata.CreateLesson(ctx, siteID, gushub.LessonData{
					Title: title,
					URLMD: rawURL,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.metadata.DeleteLesson(ctx, record.ID)
			},
		},
		{
			name: "catalog.add_lesson",
			run: func(ctx context.Context) error {
				var err error
				lessonID, err = s.store.AddLesson(ctx, catalog.AddLessonParams{
					ModuleID:   moduleID,
					GitHubPath: repo + "/" + filePath,
					Title:      title,
					RawURL:     rawURL,
					SiteID:     &record.ID,
				})
				return err
			},
		},
	}

	if err := s.runSaga(ctx, opCreateLesson, steps); err != nil {
		return catalog.Lesson{}, s.wrap(opCreateLesson, err)
	}
	lesson, err := s.store.LessonByID(ctx, lessonID)
	if err != nil {
		return catalog.Lesson{}, s.wrap(opCreateLesson, err)
	}
	return lesson, nil
}

// UpdateLessonContent rewrites the lesson file. The revision token is fetched
// immediately before the write; an intervening commit surfaces as a stale
// revision. Neither the LMS record nor the catalog row changes, the raw URL
// stays the same.
func (s *Service) UpdateLessonContent(ctx context.Context, lessonID int64, content string) error {
	lesson, err := s.store.LessonByID(ctx, lessonID)
	if err != nil {
		return s.wrap(opUpdateLesson, err)
	}
	repo, filePath := splitLocator(lesson.GitHubPath)
	return s.updateFile(ctx, opUpdateLesson, repo, filePath, content)
}

// DeleteLesson removes the LMS record and the file best-effort, then removes
// the catalog row and its tasks unconditionally.
func (s *Service) DeleteLesson(ctx context.Context, lessonID int64) error {
	lesson, err := s.store.LessonByID(ctx, lessonID)
	if err != nil {
		return s.wrap(opDeleteLesson, err)
	}

	var remoteErrs []error
	if lesson.SiteID != nil {
		if err := s.metadata.DeleteLesson(ctx, *lesson.SiteID); err != nil && !errors.Is(err, gushub.ErrNotFound) {
			s.logOrphan(opDeleteLesson, "lms lesson", err, zap.Int64("site_id", *lesson.SiteID))
			remoteErrs = append(remoteErrs, err)
		}
	}
	repo, filePath := splitLocator(lesson.GitHubPath)
	if err := s.deleteFile(ctx, repo, filePath); err != nil && !errors.Is(err, ghadapter.ErrNotFound) {
		s.logOrphan(opDeleteLesson, "file", err, zap.String("path", filePath))
		remoteErrs = append(remoteErrs, err)
	}

	if err := s.store.DeleteLesson(ctx, lessonID); err != nil {
		return s.wrap(opDeleteLesson, err)
	}
	if len(remoteErrs) > 0 {
		return newError(KindPartialFailure, opDeleteLesson, errors.Join(remoteErrs...))
	}
	return nil
}

// CreateTaskParams carries the authored fields of a new task.
type CreateTaskParams struct {
	Title   string
	Content string
}

// CreateTask publishes a task: a markdown file alongside the lessons of the
// module, the LMS assignment step pointing at its raw URL, and finally the
// catalog row. Task titles share the module-wide namespace with lesson titles
// because both become files in the same folder.
func (s *Service) CreateTask(ctx context.Context, lessonID int64, params CreateTaskParams) (catalog.Task, error) {
	lesson, err := s.store.LessonByID(ctx, lessonID)
	if err != nil {
		return catalog.Task{}, s.wrap(opCreateTask, err)
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return catalog.Task{}, validationError(opCreateTask, "title is required")
	}
	if err := s.checkModuleTitleFree(ctx, opCreateTask, lesson.ModuleID, title); err != nil {
		return catalog.Task{}, err
	}
	slug := naming.Slugify(title)
	if slug == "" {
		return catalog.Task{}, validationError(opCreateTask, "title %q has no representable characters", title)
	}
	siteID, err := siteIDOf(opCreateTask, "lesson", lesson.SiteID)
	if err != nil {
		return catalog.Task{}, err
	}

	repo, lessonPath := splitLocator(lesson.GitHubPath)
	filePath := path.Dir(lessonPath) + "/" + slug + ".md"
	owner, err := s.content.Owner(ctx)
	if err != nil {
		return catalog.Task{}, s.wrap(opCreateTask, err)
	}
	rawURL := rawContentURL(owner, repo, filePath)

	var (
		record gushub.StepRecord
		taskID int64
	)
	steps := []sagaStep{
		{
			name: "github.create_file",
			run: func(ctx context.Context) error {
				_, err := s.content.CreateFile(ctx, repo, filePath,
					markdownBody(title, params.Content), "Add task "+title)
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.deleteFile(ctx, repo, filePath)
			},
		},
		{
			name: "gushub.create_step",
			run: func(ctx context.Context) error {
				var err error
				record, err = s.metadata.CreateStep(ctx, siteID, gushub.StepData{
					Title: title,
					URLMD: rawURL,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.metadata.DeleteStep(ctx, record.ID)
			},
		},
		{
			name: "catalog.add_task",
			run: func(ctx context.Context) error {
				var err error
				taskID, err = s.store.AddTask(ctx, catalog.AddTaskParams{
					LessonID:   lessonID,
					GitHubPath: repo + "/" + filePath,
					Title:      title,
					RawURL:     rawURL,
					SiteID:     &record.ID,
				})
				return err
			},
		},
	}

	if err := s.runSaga(ctx, opCreateTask, steps); err != nil {
		return catalog.Task{}, s.wrap(opCreateTask, err)
	}
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return catalog.Task{}, s.wrap(opCreateTask, err)
	}
	return task, nil
}

// UpdateTaskContent rewrites the task file, fetching a fresh revision token first.
func (s *Service) UpdateTaskContent(ctx context.Context, taskID int64, content string) error {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return s.wrap(opUpdateTask, err)
	}
	repo, filePath := splitLocator(task.GitHubPath)
	return s.updateFile(ctx, opUpdateTask, repo, filePath, content)
}

// DeleteTask removes the LMS step and the file best-effort, then removes the
// catalog row unconditionally.
func (s *Service) DeleteTask(ctx context.Context, taskID int64) error {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return s.wrap(opDeleteTask, err)
	}

	var remoteErrs []error
	if task.SiteID != nil {
		if err := s.metadata.DeleteStep(ctx, *task.SiteID); err != nil && !errors.Is(err, gushub.ErrNotFound) {
			s.logOrphan(opDeleteTask, "lms step", err, zap.Int64("site_id", *task.SiteID))
			remoteErrs = append(remoteErrs, err)
		}
	}
	repo, filePath := splitLocator(task.GitHubPath)
	if err := s.deleteFile(ctx, repo, filePath); err != nil && !errors.Is(err, ghadapter.ErrNotFound) {
		s.logOrphan(opDeleteTask, "file", err, zap.String("path", filePath))
		remoteErrs = append(remoteErrs, err)
	}

	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return s.wrap(opDeleteTask, err)
	}
	if len(remoteErrs) > 0 {
		return newError(KindPartialFailure, opDeleteTask, errors.Join(remoteErrs...))
	}
	return nil
}

// checkModuleTitleFree enforces the shared title namespace of a module folder:
// every lesson and task in it becomes a file in the same directory.
func (s *Service) checkModuleTitleFree(ctx context.Context, operation string, moduleID int64, title string) error {
	lessons, err := s.store.LessonsByModule(ctx, moduleID)
	if err != nil {
		return s.wrap(operation, err)
	}
	for _, lesson := range lessons {
		if strings.EqualFold(lesson.Title, title) {
			return validationError(operation, "lesson %q already exists in this module", lesson.Title)
		}
	}
	tasks, err := s.store.TasksByModule(ctx, moduleID)
	if err != nil {
		return s.wrap(operation, err)
	}
	for _, task := range tasks {
		if strings.EqualFold(task.Title, title) {
			return validationError(operation, "task %q already exists in this module", task.Title)
		}
	}
	return nil
}

// updateFile reads the current revision token and rewrites the file with it.
func (s *Service) updateFile(ctx context.Context, operation, repo, filePath, content string) error {
	file, err := s.content.ReadFile(ctx, repo, filePath)
	if err != nil {
		return s.wrap(operation, err)
	}
	if file.Content == content {
		return nil
	}
	message := "Update " + path.Base(filePath)
	if err := s.content.UpdateFile(ctx, repo, filePath, content, file.RevisionToken, message); err != nil {
		return s.wrap(operation, err)
	}
	return nil
}

// deleteFile reads the current revision token and removes the file with it.
func (s *Service) deleteFile(ctx context.Context, repo, filePath string) error {
	file, err := s.content.ReadFile(ctx, repo, filePath)
	if err != nil {
		return err
	}
	return s.content.DeleteFile(ctx, repo, filePath, file.RevisionToken, "Remove "+path.Base(filePath))
}

func (s *Service) logOrphan(operation, what string, err error, fields ...zap.Field) {
	attrs := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("orphan", what),
		zap.Error(err),
	}, fields...)
	s.logger.Error("remote delete failed, orphan left behind", attrs...)
}

// wrap classifies an adapter or store error, leaving already classified errors alone.
func (s *Service) wrap(operation string, err error) error {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return newError(classify(err), operation, err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ghadapter.ErrAuth) || errors.Is(err, gushub.ErrAuth):
		return KindAuth
	case errors.Is(err, ghadapter.ErrStaleRevision):
		return KindStaleRevision
	case errors.Is(err, ghadapter.ErrNameConflict) ||
		errors.Is(err, ghadapter.ErrPathConflict) ||
		errors.Is(err, catalog.ErrConflict):
		return KindConflict
	case errors.Is(err, ghadapter.ErrNotFound) ||
		errors.Is(err, gushub.ErrNotFound) ||
		errors.Is(err, catalog.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ghadapter.ErrRemote):
		return KindRemoteContent
	case errors.Is(err, gushub.ErrRemote):
		return KindRemoteMetadata
	default:
		return KindInternal
	}
}

func siteIDOf(operation, what string, siteID *int64) (int64, error) {
	if siteID == nil {
		return 0, newError(KindInternal, operation,
			fmt.Errorf("%s has no site record", what))
	}
	return *siteID, nil
}

// splitLocator separates a catalog github_path into the repository name and
// the repository-relative file path.
func splitLocator(locator string) (repo, filePath string) {
	parts := strings.SplitN(locator, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// rawContentURL builds the public raw URL the LMS fetches markdown from.
// Path segments are percent-encoded; slug characters never need it, but the
// URL must stay valid even if stored locators predate slug normalization.
func rawContentURL(owner, repo, filePath string) string {
	segments := strings.Split(filePath, "/")
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s",
		owner, repo, ghadapter.DefaultBranch, strings.Join(escaped, "/"))
}

func readmeBody(title, description string) string {
	if strings.TrimSpace(description) == "" {
		return "# " + title + "\n"
	}
	return "# " + title + "\n\n" + description + "\n"
}

func markdownBody(title, content string) string {
	if strings.TrimSpace(content) == "" {
		return "# " + title + "\n"
	}
	return content
}
