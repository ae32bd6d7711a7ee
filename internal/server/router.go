// Package server exposes the authoring surface over loopback HTTP. The UI is
// a thin client: every button maps to one route here, and every route maps to
// one publisher or reporting call.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gushub/manager/internal/catalog"
	"github.com/gushub/manager/internal/publisher"
	"github.com/gushub/manager/internal/reporting"
	"github.com/gushub/manager/internal/remote/gushub"
)

const requestIDHeader = "X-Request-ID"

var (
	errMissingCatalog  = errors.New("catalog reader dependency required")
	errMissingSettings = errors.New("setup store dependency required")
)

// PublishingService is the authoring surface of the publisher.
type PublishingService interface {
	CreateCourse(ctx context.Context, params publisher.CreateCourseParams) (catalog.Course, error)
	DeleteCourse(ctx context.Context, courseID int64) error
	CreateModule(ctx context.Context, courseID int64, params publisher.CreateModuleParams) (catalog.Module, error)
	DeleteModule(ctx context.Context, moduleID int64) error
	CreateLesson(ctx context.Context, moduleID int64, params publisher.CreateLessonParams) (catalog.Lesson, error)
	UpdateLessonContent(ctx context.Context, lessonID int64, content string) error
	DeleteLesson(ctx context.Context, lessonID int64) error
	CreateTask(ctx context.Context, lessonID int64, params publisher.CreateTaskParams) (catalog.Task, error)
	UpdateTaskContent(ctx context.Context, taskID int64, content string) error
	DeleteTask(ctx context.Context, taskID int64) error
}

// CatalogReader serves the sidebar hierarchy.
type CatalogReader interface {
	Tree(ctx context.Context) ([]catalog.Course, error)
}

// ReportingService serves the analytics views.
type ReportingService interface {
	Students(ctx context.Context) ([]gushub.UserRecord, error)
	StudentReport(ctx context.Context, userID int64) (reporting.StudentReport, error)
	Groups(ctx context.Context) ([]gushub.GroupRecord, error)
	GroupReport(ctx context.Context, groupID int64) (reporting.GroupReport, error)
}

// SetupStore persists the instructor's credentials.
type SetupStore interface {
	IsConfigured() bool
	SetGitHubToken(token string) error
	SetGushubCredentials(login, password string) error
}

// Dependencies wires the router to the services behind it. Publisher and
// Reporting stay nil until the instructor completes setup and the process is
// restarted with credentials in place; their routes answer 409 until then.
type Dependencies struct {
	Publisher PublishingService
	Catalog   CatalogReader
	Reporting ReportingService
	Settings  SetupStore
	Logger    *zap.Logger
}

// NewHTTPHandler builds the gin router for the authoring API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}
	if deps.Settings == nil {
		return nil, errMissingSettings
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID)
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		publisher: deps.Publisher,
		catalog:   deps.Catalog,
		reporting: deps.Reporting,
		settings:  deps.Settings,
		logger:    logger,
	}

	router.GET("/api/setup/status", handler.handleSetupStatus)
	router.PUT("/api/setup", handler.handleSetup)

	authoring := router.Group("/api")
	authoring.Use(handler.requirePublisher)
	authoring.GET("/tree", handler.handleTree)
	authoring.POST("/courses", handler.handleCreateCourse)
	authoring.DELETE("/courses/:id", handler.handleDeleteCourse)
	authoring.POST("/courses/:id/modules", handler.handleCreateModule)
	authoring.DELETE("/modules/:id", handler.handleDeleteModule)
	authoring.POST("/modules/:id/lessons", handler.handleCreateLesson)
	authoring.PUT("/lessons/:id/content", handler.handleUpdateLessonContent)
	authoring.DELETE("/lessons/:id", handler.handleDeleteLesson)
	authoring.POST("/lessons/:id/tasks", handler.handleCreateTask)
	authoring.PUT("/tasks/:id/content", handler.handleUpdateTaskContent)
	authoring.DELETE("/tasks/:id", handler.handleDeleteTask)

	analytics := router.Group("/api")
	analytics.Use(handler.requireReporting)
	analytics.GET("/students", handler.handleStudents)
	analytics.GET("/students/:id/report", handler.handleStudentReport)
	analytics.GET("/groups", handler.handleGroups)
	analytics.GET("/groups/:id/report", handler.handleGroupReport)

	return router, nil
}

type httpHandler struct {
	publisher PublishingService
	catalog   CatalogReader
	reporting ReportingService
	settings  SetupStore
	logger    *zap.Logger
}

func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Writer.Header().Set(requestIDHeader, id)
	c.Next()
}

func (h *httpHandler) requirePublisher(c *gin.Context) {
	if h.publisher == nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "not_configured"})
		return
	}
	c.Next()
}

func (h *httpHandler) requireReporting(c *gin.Context) {
	if h.reporting == nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "not_configured"})
		return
	}
	c.Next()
}

type setupStatusPayload struct {
	Configured bool `json:"configured"`
}

func (h *httpHandler) handleSetupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, setupStatusPayload{Configured: h.settings.IsConfigured()})
}

type setupRequestPayload struct {
	GitHubToken    string `json:"github_token"`
	GushubLogin    string `json:"gushub_login"`
	GushubPassword string `json:"gushub_password"`
}

func (h *httpHandler) handleSetup(c *gin.Context) {
	var request setupRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(request.GitHubToken) == "" ||
		strings.TrimSpace(request.GushubLogin) == "" ||
		strings.TrimSpace(request.GushubPassword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.settings.SetGitHubToken(request.GitHubToken); err != nil {
		h.logger.Error("failed to store github token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setup_failed"})
		return
	}
	if err := h.settings.SetGushubCredentials(request.GushubLogin, request.GushubPassword); err != nil {
		h.logger.Error("failed to store gushub credentials", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setup_failed"})
		return
	}
	c.JSON(http.StatusOK, setupStatusPayload{Configured: h.settings.IsConfigured()})
}

type taskPayload struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	GitHubPath string `json:"github_path"`
	RawURL     string `json:"raw_url"`
	SiteID     *int64 `json:"site_id"`
}

type lessonPayload struct {
	ID         int64         `json:"id"`
	Title      string        `json:"title"`
	GitHubPath string        `json:"github_path"`
	RawURL     string        `json:"raw_url"`
	SiteID     *int64        `json:"site_id"`
	Tasks      []taskPayload `json:"tasks,omitempty"`
}

type modulePayload struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GitHubPath  string          `json:"github_path"`
	SiteID      *int64          `json:"site_id"`
	Lessons     []lessonPayload `json:"lessons,omitempty"`
}

type coursePayload struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GitHubPath  string          `json:"github_path"`
	SiteID      *int64          `json:"site_id"`
	Modules     []modulePayload `json:"modules,omitempty"`
}

func toTaskPayload(task catalog.Task) taskPayload {
	return taskPayload{
		ID:         task.ID,
		Title:      task.Title,
		GitHubPath: task.GitHubPath,
		RawURL:     task.RawURL,
		SiteID:     task.SiteID,
	}
}

func toLessonPayload(lesson catalog.Lesson) lessonPayload {
	payload := lessonPayload{
		ID:         lesson.ID,
		Title:      lesson.Title,
		GitHubPath: lesson.GitHubPath,
		RawURL:     lesson.RawURL,
		SiteID:     lesson.SiteID,
	}
	for _, task := range lesson.Tasks {
		payload.Tasks = append(payload.Tasks, toTaskPayload(task))
	}
	return payload
}

func toModulePayload(module catalog.Module) modulePayload {
	payload := modulePayload{
		ID:          module.ID,
		Title:       module.Title,
		Description: module.Description,
		GitHubPath:  module.GitHubPath,
		SiteID:      module.SiteID,
	}
	for _, lesson := range module.Lessons {
		payload.Lessons = append(payload.Lessons, toLessonPayload(lesson))
	}
	return payload
}

func toCoursePayload(course catalog.Course) coursePayload {
	payload := coursePayload{
		ID:          course.ID,
		Title:       course.Title,
		Description: course.Description,
		GitHubPath:  course.GitHubPath,
		SiteID:      course.SiteID,
	}
	for _, module := range course.Modules {
		payload.Modules = append(payload.Modules, toModulePayload(module))
	}
	return payload
}

func (h *httpHandler) handleTree(c *gin.Context) {
	courses, err := h.catalog.Tree(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	payload := make([]coursePayload, 0, len(courses))
	for _, course := range courses {
		payload = append(payload, toCoursePayload(course))
	}
	c.JSON(http.StatusOK, gin.H{"courses": payload})
}

type createCoursePayload struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	CoverImage    []byte `json:"cover_image"`
	CoverFilename string `json:"cover_filename"`
}

func (h *httpHandler) handleCreateCourse(c *gin.Context) {
	var request createCoursePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	course, err := h.publisher.CreateCourse(c.Request.Context(), publisher.CreateCourseParams{
		Title:         request.Title,
		Description:   request.Description,
		CoverImage:    request.CoverImage,
		CoverFilename: request.CoverFilename,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCoursePayload(course))
}

func (h *httpHandler) handleDeleteCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.writeDeleteResult(c, h.publisher.DeleteCourse(c.Request.Context(), id))
}

type createModulePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *httpHandler) handleCreateModule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request createModulePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	module, err := h.publisher.CreateModule(c.Request.Context(), id, publisher.CreateModuleParams{
		Title:       request.Title,
		Description: request.Description,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toModulePayload(module))
}

func (h *httpHandler) handleDeleteModule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.writeDeleteResult(c, h.publisher.DeleteModule(c.Request.Context(), id))
}

type createContentPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *httpHandler) handleCreateLesson(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request createContentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	lesson, err := h.publisher.CreateLesson(c.Request.Context(), id, publisher.CreateLessonParams{
		Title:   request.Title,
		Content: request.Content,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLessonPayload(lesson))
}

type updateContentPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleUpdateLessonContent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request updateContentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.publisher.UpdateLessonContent(c.Request.Context(), id, request.Content); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *httpHandler) handleDeleteLesson(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.writeDeleteResult(c, h.publisher.DeleteLesson(c.Request.Context(), id))
}

func (h *httpHandler) handleCreateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request createContentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	task, err := h.publisher.CreateTask(c.Request.Context(), id, publisher.CreateTaskParams{
		Title:   request.Title,
		Content: request.Content,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskPayload(task))
}

func (h *httpHandler) handleUpdateTaskContent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request updateContentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.publisher.UpdateTaskContent(c.Request.Context(), id, request.Content); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *httpHandler) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.writeDeleteResult(c, h.publisher.DeleteTask(c.Request.Context(), id))
}

func (h *httpHandler) handleStudents(c *gin.Context) {
	students, err := h.reporting.Students(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *httpHandler) handleStudentReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := h.reporting.StudentReport(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *httpHandler) handleGroups(c *gin.Context) {
	groups, err := h.reporting.Groups(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *httpHandler) handleGroupReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := h.reporting.GroupReport(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

// writeDeleteResult reports a partial failure as success with a warning: the
// local row is gone either way, only remote cleanup is outstanding.
func (h *httpHandler) writeDeleteResult(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
		return
	}
	if publisher.KindOf(err) == publisher.KindPartialFailure {
		h.logger.Warn("delete left remote objects behind", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "warning": "remote_cleanup_incomplete"})
		return
	}
	h.writeError(c, err)
}

func (h *httpHandler) writeError(c *gin.Context, err error) {
	kind := publisher.KindOf(err)
	if errors.Is(err, gushub.ErrNotFound) {
		kind = publisher.KindNotFound
	}
	if errors.Is(err, gushub.ErrAuth) {
		kind = publisher.KindAuth
	}
	if errors.Is(err, gushub.ErrRemote) {
		kind = publisher.KindRemoteMetadata
	}

	status := http.StatusInternalServerError
	switch kind {
	case publisher.KindValidation:
		status = http.StatusBadRequest
	case publisher.KindConflict, publisher.KindStaleRevision:
		status = http.StatusConflict
	case publisher.KindAuth:
		status = http.StatusUnauthorized
	case publisher.KindNotFound:
		status = http.StatusNotFound
	case publisher.KindRemoteContent, publisher.KindRemoteMetadata:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": string(kind)})
}
