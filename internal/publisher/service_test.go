package publisher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/gushub/manager/internal/catalog"
	ghadapter "github.com/gushub/manager/internal/remote/github"
	"github.com/gushub/manager/internal/remote/gushub"
)

type fakeContent struct {
	ownerErr      error
	createRepoErr error
	createdRepos  []string
	deletedRepos  []string
	createFileErr error
	createdFiles  []string
	files         map[string]ghadapter.FileContent
	readErr       error
	updateErr     error
	updatedSHAs   []string
	deleteFileErr error
	deletedFiles  []string
	listed        []string
	listErr       error
}

func (f *fakeContent) Owner(_ context.Context) (string, error) {
	if f.ownerErr != nil {
		return "", f.ownerErr
	}
	return "instructor", nil
}

func (f *fakeContent) CreateRepository(_ context.Context, name, _ string) (ghadapter.RepositoryInfo, error) {
	if f.createRepoErr != nil {
		return ghadapter.RepositoryInfo{}, f.createRepoErr
	}
	f.createdRepos = append(f.createdRepos, name)
	return ghadapter.RepositoryInfo{
		Name:          name,
		HTMLURL:       "https://github.com/instructor/" + name,
		DefaultBranch: ghadapter.DefaultBranch,
	}, nil
}

func (f *fakeContent) DeleteRepository(_ context.Context, name string) error {
	f.deletedRepos = append(f.deletedRepos, name)
	return nil
}

func (f *fakeContent) CreateFile(_ context.Context, repo, path, content, _ string) (string, error) {
	if f.createFileErr != nil {
		return "", f.createFileErr
	}
	if f.files == nil {
		f.files = map[string]ghadapter.FileContent{}
	}
	key := repo + "/" + path
	f.createdFiles = append(f.createdFiles, key)
	f.files[key] = ghadapter.FileContent{Content: content, RevisionToken: "sha-" + path}
	return path, nil
}

func (f *fakeContent) ReadFile(_ context.Context, repo, path string) (ghadapter.FileContent, error) {
	if f.readErr != nil {
		return ghadapter.FileContent{}, f.readErr
	}
	file, ok := f.files[repo+"/"+path]
	if !ok {
		return ghadapter.FileContent{}, fmt.Errorf("%w: %s", ghadapter.ErrNotFound, path)
	}
	return file, nil
}

func (f *fakeContent) UpdateFile(_ context.Context, _, _, _, revisionToken, _ string) error {
	f.updatedSHAs = append(f.updatedSHAs, revisionToken)
	return f.updateErr
}

func (f *fakeContent) DeleteFile(_ context.Context, repo, path, _, _ string) error {
	if f.deleteFileErr != nil {
		return f.deleteFileErr
	}
	key := repo + "/" + path
	f.deletedFiles = append(f.deletedFiles, key)
	delete(f.files, key)
	return nil
}

func (f *fakeContent) ListFiles(_ context.Context, _, _ string) ([]string, error) {
	return f.listed, f.listErr
}

type fakeMetadata struct {
	nextID          int64
	createCourseErr error
	createdCourses  []gushub.CourseData
	deletedCourses  []int64
	createModuleErr error
	createdModules  []gushub.ModuleData
	deletedModules  []int64
	createLessonErr error
	createdLessons  []gushub.LessonData
	deletedLessons  []int64
	deleteLessonErr error
	createStepErr   error
	createdSteps    []gushub.StepData
	deletedSteps    []int64
	deleteStepErr   error
	uploadErr       error
	uploadURL       string
	uploads         []string
}

func (f *fakeMetadata) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeMetadata) CreateCourse(_ context.Context, data gushub.CourseData) (gushub.CourseRecord, error) {
	if f.createCourseErr != nil {
		return gushub.CourseRecord{}, f.createCourseErr
	}
	f.createdCourses = append(f.createdCourses, data)
	return gushub.CourseRecord{ID: f.id(), Title: data.Title}, nil
}

func (f *fakeMetadata) DeleteCourse(_ context.Context, courseID int64) error {
	f.deletedCourses = append(f.deletedCourses, courseID)
	return nil
}

func (f *fakeMetadata) CreateModule(_ context.Context, _ int64, data gushub.ModuleData) (gushub.ModuleRecord, error) {
	if f.createModuleErr != nil {
		return gushub.ModuleRecord{}, f.createModuleErr
	}
	f.createdModules = append(f.createdModules, data)
	return gushub.ModuleRecord{ID: f.id(), Title: data.Title}, nil
}

func (f *fakeMetadata) DeleteModule(_ context.Context, moduleID int64) error {
	f.deletedModules = append(f.deletedModules, moduleID)
	return nil
}

func (f *fakeMetadata) CreateLesson(_ context.Context, _ int64, data gushub.LessonData) (gushub.LessonRecord, error) {
	if f.createLessonErr != nil {
		return gushub.LessonRecord{}, f.createLessonErr
	}
	f.createdLessons = append(f.createdLessons, data)
	return gushub.LessonRecord{ID: f.id(), Title: data.Title}, nil
}

func (f *fakeMetadata) DeleteLesson(_ context.Context, lessonID int64) error {
	f.deletedLessons = append(f.deletedLessons, lessonID)
	return f.deleteLessonErr
}

func (f *fakeMetadata) CreateStep(_ context.Context, _ int64, data gushub.StepData) (gushub.StepRecord, error) {
	if f.createStepErr != nil {
		return gushub.StepRecord{}, f.createStepErr
	}
	f.createdSteps = append(f.createdSteps, data)
	return gushub.StepRecord{ID: f.id(), Title: data.Title}, nil
}

func (f *fakeMetadata) DeleteStep(_ context.Context, stepID int64) error {
	f.deletedSteps = append(f.deletedSteps, stepID)
	return f.deleteStepErr
}

func (f *fakeMetadata) UploadPhoto(_ context.Context, filename string, _ []byte) (gushub.UploadResult, error) {
	if f.uploadErr != nil {
		return gushub.UploadResult{}, f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return gushub.UploadResult{URL: f.uploadURL}, nil
}

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:publisher_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&catalog.Course{}, &catalog.Module{}, &catalog.Lesson{}, &catalog.Task{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	store, err := catalog.NewStore(catalog.StoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return store
}

func newTestService(t *testing.T, content *fakeContent, metadata *fakeMetadata) (*Service, *catalog.Store) {
	t.Helper()
	store := newTestStore(t)
	service, err := NewService(ServiceConfig{Store: store, Content: content, Metadata: metadata})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service, store
}

func int64Ptr(value int64) *int64 {
	return &value
}

func seedCourse(t *testing.T, store *catalog.Store) catalog.Course {
	t.Helper()
	id, err := store.AddCourse(context.Background(), catalog.AddCourseParams{
		GitHubPath: "algoritmy",
		Title:      "Алгоритмы",
		SiteID:     int64Ptr(11),
	})
	if err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	course, err := store.CourseByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load seeded course: %v", err)
	}
	return course
}

func seedModule(t *testing.T, store *catalog.Store, courseID int64) catalog.Module {
	t.Helper()
	id, err := store.AddModule(context.Background(), catalog.AddModuleParams{
		CourseID:   courseID,
		GitHubPath: "algoritmy/sortirovki",
		Title:      "Сортировки",
		SiteID:     int64Ptr(21),
	})
	if err != nil {
		t.Fatalf("failed to seed module: %v", err)
	}
	module, err := store.ModuleByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load seeded module: %v", err)
	}
	return module
}

func seedLesson(t *testing.T, store *catalog.Store, moduleID int64) catalog.Lesson {
	t.Helper()
	id, err := store.AddLesson(context.Background(), catalog.AddLessonParams{
		ModuleID:   moduleID,
		GitHubPath: "algoritmy/sortirovki/bystraja-sortirovka.md",
		Title:      "Быстрая сортировка",
		RawURL:     "https://raw.githubusercontent.com/instructor/algoritmy/main/sortirovki/bystraja-sortirovka.md",
		SiteID:     int64Ptr(31),
	})
	if err != nil {
		t.Fatalf("failed to seed lesson: %v", err)
	}
	lesson, err := store.LessonByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load seeded lesson: %v", err)
	}
	return lesson
}

func TestCreateCoursePublishesAllThreeBackends(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, _ := newTestService(t, content, metadata)

	course, err := service.CreateCourse(context.Background(), CreateCourseParams{
		Title:       "Алгоритмы",
		Description: "Основы алгоритмов",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if course.GitHubPath != "algoritmy" {
		t.Fatalf("unexpected repository locator %q", course.GitHubPath)
	}
	if course.SiteID == nil || *course.SiteID != 1 {
		t.Fatalf("expected site id from the LMS record, got %v", course.SiteID)
	}
	if len(content.createdRepos) != 1 || content.createdRepos[0] != "algoritmy" {
		t.Fatalf("unexpected repositories %v", content.createdRepos)
	}
	if len(content.createdFiles) != 1 || content.createdFiles[0] != "algoritmy/README.md" {
		t.Fatalf("expected a README commit, got %v", content.createdFiles)
	}
	if len(metadata.createdCourses) != 1 || metadata.createdCourses[0].Title != "Алгоритмы" {
		t.Fatalf("unexpected LMS course records %v", metadata.createdCourses)
	}
}

func TestCreateCourseDuplicateTitleSkipsRemotes(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	seedCourse(t, store)

	_, err := service.CreateCourse(context.Background(), CreateCourseParams{Title: "алгоритмы"})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(content.createdRepos) != 0 {
		t.Fatalf("expected no repository calls, got %v", content.createdRepos)
	}
	if len(metadata.createdCourses) != 0 {
		t.Fatalf("expected no LMS calls, got %v", metadata.createdCourses)
	}
}

func TestCreateCourseBlankTitleRejected(t *testing.T) {
	content := &fakeContent{}
	service, _ := newTestService(t, content, &fakeMetadata{})

	_, err := service.CreateCourse(context.Background(), CreateCourseParams{Title: "   "})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(content.createdRepos) != 0 {
		t.Fatalf("expected no repository calls, got %v", content.createdRepos)
	}
}

func TestCreateCourseContentFailureLeavesNoTrace(t *testing.T) {
	content := &fakeContent{createRepoErr: fmt.Errorf("%w: boom", ghadapter.ErrRemote)}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)

	_, err := service.CreateCourse(context.Background(), CreateCourseParams{Title: "Алгоритмы"})
	if KindOf(err) != KindRemoteContent {
		t.Fatalf("expected remote content failure, got %v", err)
	}
	if len(metadata.createdCourses) != 0 {
		t.Fatalf("expected no LMS calls, got %v", metadata.createdCourses)
	}
	courses, err := store.Courses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no cache rows, got %v", courses)
	}
}

func TestCreateCourseMetadataFailureDeletesRepository(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{createCourseErr: fmt.Errorf("%w: boom", gushub.ErrRemote)}
	service, store := newTestService(t, content, metadata)

	_, err := service.CreateCourse(context.Background(), CreateCourseParams{Title: "Алгоритмы"})
	if KindOf(err) != KindRemoteMetadata {
		t.Fatalf("expected remote metadata failure, got %v", err)
	}
	if len(content.deletedRepos) != 1 || content.deletedRepos[0] != "algoritmy" {
		t.Fatalf("expected the repository to be compensated, got %v", content.deletedRepos)
	}
	courses, err := store.Courses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no cache rows, got %v", courses)
	}
}

func TestCreateCourseCacheFailureCompensatesBothRemotes(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	// Same slug, different title: the collision only surfaces at the cache write.
	if _, err := store.AddCourse(context.Background(), catalog.AddCourseParams{
		GitHubPath: "algoritmy",
		Title:      "Algoritmy",
		SiteID:     int64Ptr(11),
	}); err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	_, err := service.CreateCourse(context.Background(), CreateCourseParams{Title: "Алгоритмы"})
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(metadata.deletedCourses) != 1 || metadata.deletedCourses[0] != 1 {
		t.Fatalf("expected the LMS course to be compensated, got %v", metadata.deletedCourses)
	}
	if len(content.deletedRepos) != 1 || content.deletedRepos[0] != "algoritmy" {
		t.Fatalf("expected the repository to be compensated, got %v", content.deletedRepos)
	}
}

func TestCreateCourseUploadsCover(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{uploadURL: "https://gushub.ru/uploads/cover.jpg"}
	service, _ := newTestService(t, content, metadata)

	_, err := service.CreateCourse(context.Background(), CreateCourseParams{
		Title:         "Алгоритмы",
		CoverImage:    []byte{0xFF, 0xD8},
		CoverFilename: "cover.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metadata.uploads) != 1 || metadata.uploads[0] != "cover.jpg" {
		t.Fatalf("expected a cover upload, got %v", metadata.uploads)
	}
	if metadata.createdCourses[0].Image != "https://gushub.ru/uploads/cover.jpg" {
		t.Fatalf("expected the uploaded URL on the course record, got %q", metadata.createdCourses[0].Image)
	}
}

func TestCreateModulePublishesFolderReadme(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)

	module, err := service.CreateModule(context.Background(), course.ID, CreateModuleParams{Title: "Сортировки"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if module.GitHubPath != "algoritmy/sortirovki" {
		t.Fatalf("unexpected locator %q", module.GitHubPath)
	}
	if module.SiteID == nil {
		t.Fatalf("expected site id on the module row")
	}
	if len(content.createdFiles) != 1 || content.createdFiles[0] != "algoritmy/sortirovki/README.md" {
		t.Fatalf("expected a folder README, got %v", content.createdFiles)
	}
}

func TestCreateModuleDuplicateTitleIsCaseInsensitive(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	seedModule(t, store, course.ID)

	_, err := service.CreateModule(context.Background(), course.ID, CreateModuleParams{Title: "СОРТИРОВКИ"})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(content.createdFiles) != 0 || len(metadata.createdModules) != 0 {
		t.Fatalf("expected no remote calls, got %v %v", content.createdFiles, metadata.createdModules)
	}
}

func TestCreateLessonBuildsRawURL(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)

	lesson, err := service.CreateLesson(context.Background(), module.ID, CreateLessonParams{
		Title:   "Быстрая сортировка",
		Content: "# Быстрая сортировка\n\nРазбор алгоритма.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "https://raw.githubusercontent.com/instructor/algoritmy/main/sortirovki/bystraja-sortirovka.md"
	if lesson.RawURL != expected {
		t.Fatalf("unexpected raw url %q", lesson.RawURL)
	}
	if len(metadata.createdLessons) != 1 || metadata.createdLessons[0].URLMD != expected {
		t.Fatalf("expected the raw url on the LMS record, got %v", metadata.createdLessons)
	}
	if lesson.GitHubPath != "algoritmy/sortirovki/bystraja-sortirovka.md" {
		t.Fatalf("unexpected locator %q", lesson.GitHubPath)
	}
}

func TestCreateLessonMetadataFailureRemovesFile(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{createLessonErr: fmt.Errorf("%w: boom", gushub.ErrRemote)}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)

	_, err := service.CreateLesson(context.Background(), module.ID, CreateLessonParams{Title: "Быстрая сортировка"})
	if KindOf(err) != KindRemoteMetadata {
		t.Fatalf("expected remote metadata failure, got %v", err)
	}
	if len(content.deletedFiles) != 1 || content.deletedFiles[0] != "algoritmy/sortirovki/bystraja-sortirovka.md" {
		t.Fatalf("expected the committed file to be compensated, got %v", content.deletedFiles)
	}
	lessons, err := store.LessonsByModule(context.Background(), module.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 0 {
		t.Fatalf("expected no cache rows, got %v", lessons)
	}
}

func TestCreateTaskTitleCollidesWithSiblingLesson(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	_, err := service.CreateTask(context.Background(), lesson.ID, CreateTaskParams{Title: "быстрая сортировка"})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(content.createdFiles) != 0 || len(metadata.createdSteps) != 0 {
		t.Fatalf("expected no remote calls, got %v %v", content.createdFiles, metadata.createdSteps)
	}
}

func TestCreateTaskPublishesAssignmentStep(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	task, err := service.CreateTask(context.Background(), lesson.ID, CreateTaskParams{Title: "Задача про пирамиду"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.GitHubPath != "algoritmy/sortirovki/zadacha-pro-piramidu.md" {
		t.Fatalf("unexpected locator %q", task.GitHubPath)
	}
	if len(metadata.createdSteps) != 1 || metadata.createdSteps[0].Title != "Задача про пирамиду" {
		t.Fatalf("unexpected LMS step records %v", metadata.createdSteps)
	}
}

func TestUpdateLessonContentUsesFreshRevision(t *testing.T) {
	content := &fakeContent{files: map[string]ghadapter.FileContent{
		"algoritmy/sortirovki/bystraja-sortirovka.md": {Content: "old", RevisionToken: "sha-7"},
	}}
	service, store := newTestService(t, content, &fakeMetadata{})
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	if err := service.UpdateLessonContent(context.Background(), lesson.ID, "new body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.updatedSHAs) != 1 || content.updatedSHAs[0] != "sha-7" {
		t.Fatalf("expected the freshly read revision token, got %v", content.updatedSHAs)
	}
}

func TestUpdateLessonContentSkipsUnchangedBody(t *testing.T) {
	content := &fakeContent{files: map[string]ghadapter.FileContent{
		"algoritmy/sortirovki/bystraja-sortirovka.md": {Content: "same", RevisionToken: "sha-7"},
	}}
	service, store := newTestService(t, content, &fakeMetadata{})
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	if err := service.UpdateLessonContent(context.Background(), lesson.ID, "same"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.updatedSHAs) != 0 {
		t.Fatalf("expected no write for identical content, got %v", content.updatedSHAs)
	}
}

func TestUpdateLessonContentSurfacesStaleRevision(t *testing.T) {
	content := &fakeContent{
		files: map[string]ghadapter.FileContent{
			"algoritmy/sortirovki/bystraja-sortirovka.md": {Content: "old", RevisionToken: "sha-7"},
		},
		updateErr: fmt.Errorf("%w: sha mismatch", ghadapter.ErrStaleRevision),
	}
	service, store := newTestService(t, content, &fakeMetadata{})
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	err := service.UpdateLessonContent(context.Background(), lesson.ID, "new body")
	if KindOf(err) != KindStaleRevision {
		t.Fatalf("expected stale revision, got %v", err)
	}
}

func TestDeleteLessonRemovesRowDespiteRemoteFailures(t *testing.T) {
	content := &fakeContent{readErr: fmt.Errorf("%w: boom", ghadapter.ErrRemote)}
	metadata := &fakeMetadata{deleteLessonErr: fmt.Errorf("%w: boom", gushub.ErrRemote)}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	err := service.DeleteLesson(context.Background(), lesson.ID)
	if KindOf(err) != KindPartialFailure {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if _, err := store.LessonByID(context.Background(), lesson.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected the cache row to be gone, got %v", err)
	}
}

func TestDeleteModuleRemovesEveryFile(t *testing.T) {
	content := &fakeContent{
		files: map[string]ghadapter.FileContent{
			"algoritmy/sortirovki/README.md":              {Content: "# Сортировки", RevisionToken: "sha-1"},
			"algoritmy/sortirovki/bystraja-sortirovka.md": {Content: "# Быстрая", RevisionToken: "sha-2"},
		},
		listed: []string{"sortirovki/README.md", "sortirovki/bystraja-sortirovka.md"},
	}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	if err := service.DeleteModule(context.Background(), module.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.deletedFiles) != 2 {
		t.Fatalf("expected every folder file removed, got %v", content.deletedFiles)
	}
	if len(metadata.deletedModules) != 1 || metadata.deletedModules[0] != 21 {
		t.Fatalf("expected the LMS module removed, got %v", metadata.deletedModules)
	}
	if _, err := store.ModuleByID(context.Background(), module.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected the module row to be gone, got %v", err)
	}
	if _, err := store.LessonByID(context.Background(), lesson.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected descendant rows to be gone, got %v", err)
	}
}

func TestDeleteCourseRemovesSubtree(t *testing.T) {
	content := &fakeContent{}
	metadata := &fakeMetadata{}
	service, store := newTestService(t, content, metadata)
	course := seedCourse(t, store)
	module := seedModule(t, store, course.ID)
	lesson := seedLesson(t, store, module.ID)

	if err := service.DeleteCourse(context.Background(), course.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.deletedRepos) != 1 || content.deletedRepos[0] != "algoritmy" {
		t.Fatalf("expected the repository removed, got %v", content.deletedRepos)
	}
	if len(metadata.deletedCourses) != 1 || metadata.deletedCourses[0] != 11 {
		t.Fatalf("expected the LMS course removed, got %v", metadata.deletedCourses)
	}
	if _, err := store.LessonByID(context.Background(), lesson.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected descendant rows to be gone, got %v", err)
	}
}

func TestCreateModuleForMissingCourse(t *testing.T) {
	service, _ := newTestService(t, &fakeContent{}, &fakeMetadata{})

	_, err := service.CreateModule(context.Background(), 99, CreateModuleParams{Title: "Сортировки"})
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
