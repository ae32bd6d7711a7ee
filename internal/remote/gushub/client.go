// Package gushub wraps the Gushub LMS REST API: session login with
// access/refresh tokens carried as cookies, CRUD for the pedagogical records
// mirroring the course hierarchy, and the read-only analytics endpoints.
package gushub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAuth indicates the LMS rejected the stored credentials.
	ErrAuth = errors.New("gushub: authentication failed")
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("gushub: not found")
	// ErrRemote covers every other backend rejection.
	ErrRemote = errors.New("gushub: remote error")

	errMissingBaseURL     = errors.New("base url is required")
	errMissingCredentials = errors.New("credential store is required")
	noOpLogger            = zap.NewNop()
)

const maxResponseBytes = 4 << 20

// CredentialStore supplies stored credentials and caches the issued session token.
type CredentialStore interface {
	GushubCredentials() (login, password string)
	GushubToken() string
	SetGushubToken(token string) error
}

// ClientConfig describes the dependencies of the metadata adapter.
type ClientConfig struct {
	BaseURL     string
	Credentials CredentialStore
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client is the remote metadata side of the publisher.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	credentials CredentialStore
	logger      *zap.Logger

	userID       int64
	accessToken  string
	refreshToken string
}

// NewClient validates the configuration and returns a Client with a cookie jar.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errMissingBaseURL
	}
	if cfg.Credentials == nil {
		return nil, errMissingCredentials
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	client := &Client{
		baseURL:     base,
		httpClient:  httpClient,
		credentials: cfg.Credentials,
		logger:      logger,
	}
	// A still-valid stored token resumes the previous session; it must reach
	// the wire as a cookie, not just sit in memory. Expired tokens are ignored
	// and ensureSession logs in before the first request.
	if token := cfg.Credentials.GushubToken(); token != "" && !tokenExpired(token) {
		client.accessToken = token
		client.installSessionCookies()
	}
	return client, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User struct {
		ID int64 `json:"id"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates with the stored credentials and installs the session cookies.
func (c *Client) Login(ctx context.Context) error {
	login, password := c.credentials.GushubCredentials()
	if strings.TrimSpace(login) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: credentials not configured", ErrAuth)
	}

	var response loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Username: login, Password: password}, &response); err != nil {
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrRemote) {
			return fmt.Errorf("%w: login rejected", ErrAuth)
		}
		return err
	}

	c.userID = response.User.ID
	c.accessToken = response.AccessToken
	c.refreshToken = response.RefreshToken
	c.installSessionCookies()

	if err := c.credentials.SetGushubToken(response.AccessToken); err != nil {
		c.logger.Warn("failed to cache session token", zap.Error(err))
	}
	return nil
}

// Logout invalidates the session and clears local session state.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.userID = 0
	c.accessToken = ""
	c.refreshToken = ""
	if jar := c.httpClient.Jar; jar != nil {
		jar.SetCookies(c.baseURL, []*http.Cookie{
			{Name: "user_id", MaxAge: -1},
			{Name: "access_token", MaxAge: -1},
			{Name: "refresh_token", MaxAge: -1},
		})
	}
	return err
}

// CourseData is the payload for creating an LMS course record.
type CourseData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

// CourseRecord is the LMS view of a course.
type CourseRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// CreateCourse creates the LMS course record and returns its assigned id.
func (c *Client) CreateCourse(ctx context.Context, data CourseData) (CourseRecord, error) {
	var record CourseRecord
	err := c.doAuthenticated(ctx, http.MethodPost, "/api/courses", data, &record)
	return record, err
}

// DeleteCourse removes the LMS course record.
func (c *Client) DeleteCourse(ctx context.Context, courseID int64) error {
	return c.doAuthenticated(ctx, http.MethodDelete, fmt.Sprintf("/api/courses/%d", courseID), nil, nil)
}

// Courses lists every LMS course record.
func (c *Client) Courses(ctx context.Context) ([]CourseRecord, error) {
	var records []CourseRecord
	err := c.doAuthenticated(ctx, http.MethodGet, "/api/courses", nil, &records)
	return records, err
}

// ModuleData is the payload for creating an LMS module record.
type ModuleData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ModuleRecord is the LMS view of a module.
type ModuleRecord struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
	CourseID int64  `json:"courseId"`
}

// CreateModule creates the LMS module record under the given course.
func (c *Client) CreateModule(ctx context.Context, courseID int64, data ModuleData) (ModuleRecord, error) {
	var record ModuleRecord
	err := c.doAuthenticated(ctx, http.MethodPost, fmt.Sprintf("/api/courses/%d/modules", courseID), data, &record)
	return record, err
}

// DeleteModule removes the LMS module record.
func (c *Client) DeleteModule(ctx context.Context, moduleID int64) error {
	return c.doAuthenticated(ctx, http.MethodDelete, fmt.Sprintf("/api/courses/modules/%d", moduleID), nil, nil)
}

// LessonData is the payload for creating an LMS lesson record.
type LessonData struct {
	Title string `json:"title"`
	URLMD string `json:"urlMd"`
}

// LessonRecord is the LMS view of a lesson.
type LessonRecord struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ModuleID int64  `json:"moduleId"`
	URLMD    string `json:"urlMd"`
	Order    int    `json:"order"`
}

// CreateLesson creates the LMS lesson record under the given module.
func (c *Client) CreateLesson(ctx context.Context, moduleID int64, data LessonData) (LessonRecord, error) {
	var record LessonRecord
	err := c.doAuthenticated(ctx, http.MethodPost, fmt.Sprintf("/api/courses/modules/%d/lessons", moduleID), data, &record)
	return record, err
}

// DeleteLesson removes the LMS lesson record.
func (c *Client) DeleteLesson(ctx context.Context, lessonID int64) error {
	return c.doAuthenticated(ctx, http.MethodDelete, fmt.Sprintf("/api/courses/lessons/%d", lessonID), nil, nil)
}

// StepTypeAssignment is the step type used for authored tasks.
const StepTypeAssignment = "ASSIGNMENT"

// StepData is the payload for creating an LMS step record.
type StepData struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URLMD string `json:"urlMd"`
}

// StepRecord is the LMS view of a step.
type StepRecord struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	URLMD    string `json:"urlMd"`
	LessonID int64  `json:"lessonId"`
	Order    int    `json:"order"`
}

// CreateStep creates the LMS step record under the given lesson.
func (c *Client) CreateStep(ctx context.Context, lessonID int64, data StepData) (StepRecord, error) {
	if data.Type == "" {
		data.Type = StepTypeAssignment
	}
	var record StepRecord
	err := c.doAuthenticated(ctx, http.MethodPost, fmt.Sprintf("/api/courses/lessons/%d/steps", lessonID), data, &record)
	return record, err
}

// DeleteStep removes the LMS step record.
func (c *Client) DeleteStep(ctx context.Context, stepID int64) error {
	return c.doAuthenticated(ctx, http.MethodDelete, fmt.Sprintf("/api/courses/steps/%d", stepID), nil, nil)
}

// UploadResult is returned by the cover image upload endpoint.
type UploadResult struct {
	URL string `json:"url"`
}

// UploadPhoto sends a cover image as multipart form data and returns its URL.
func (c *Client) UploadPhoto(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	if filename == "" {
		filename = uuid.NewString() + ".jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: building upload: %v", ErrRemote, err)
	}
	if _, err := part.Write(data); err != nil {
		return UploadResult{}, fmt.Errorf("%w: building upload: %v", ErrRemote, err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("%w: building upload: %v", ErrRemote, err)
	}

	var result UploadResult
	err = c.doAuthenticatedRaw(ctx, http.MethodPost, "/api/upload", body.Bytes(), writer.FormDataContentType(), &result)
	return result, err
}

// installSessionCookies mirrors the held session state into the jar. A resumed
// session knows only the access token; absent fields are not written.
func (c *Client) installSessionCookies() {
	if c.httpClient.Jar == nil {
		return
	}
	cookies := make([]*http.Cookie, 0, 3)
	if c.userID != 0 {
		cookies = append(cookies, &http.Cookie{Name: "user_id", Value: fmt.Sprintf("%d", c.userID), Path: "/"})
	}
	if c.accessToken != "" {
		cookies = append(cookies, &http.Cookie{Name: "access_token", Value: c.accessToken, Path: "/"})
	}
	if c.refreshToken != "" {
		cookies = append(cookies, &http.Cookie{Name: "refresh_token", Value: c.refreshToken, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
}

// ensureSession logs in when no usable access token is held. The expiry check
// is an unverified peek at the token's exp claim; the server remains the
// authority and a 401 still triggers the single re-authentication retry.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessToken != "" && !tokenExpired(c.accessToken) {
		return nil
	}
	return c.Login(ctx)
}

func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return expiry.Before(time.Now().Add(30 * time.Second))
}

// doAuthenticated performs a request inside a session, re-authenticating once
// on a 401 and retrying the single failed request exactly once.
func (c *Client) doAuthenticated(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	err := c.do(ctx, method, path, payload, out)
	if !errors.Is(err, ErrAuth) {
		return err
	}

	c.logger.Info("session expired, re-authenticating once",
		zap.String("method", method), zap.String("path", path))
	if err := c.Login(ctx); err != nil {
		return err
	}
	return c.do(ctx, method, path, payload, out)
}

func (c *Client) doAuthenticatedRaw(ctx context.Context, method, path string, body []byte, contentType string, out interface{}) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	err := c.doRaw(ctx, method, path, body, contentType, out)
	if !errors.Is(err, ErrAuth) {
		return err
	}
	if err := c.Login(ctx); err != nil {
		return err
	}
	return c.doRaw(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body []byte
	contentType := ""
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encoding request: %v", ErrRemote, err)
		}
		body = encoded
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, path, body, contentType, out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, body []byte, contentType string, out interface{}) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrRemote, err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRemote, method, path, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRemote, err)
	}

	switch {
	case response.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s", ErrAuth, method, path)
	case response.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case response.StatusCode >= 400:
		c.logger.Error("gushub request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", response.StatusCode))
		return fmt.Errorf("%w: %s %s: status %d", ErrRemote, method, path, response.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrRemote, err)
	}
	return nil
}
