// Package github wraps the GitHub REST API as the content side of publishing:
// one repository per course, one folder per module, one markdown file per
// lesson or task. File updates and deletes require the current blob SHA,
// which callers must fetch immediately beforehand via ReadFile.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v60/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultBranch is the only branch the manager writes to.
const DefaultBranch = "main"

var (
	// ErrAuth indicates the personal access token was rejected.
	ErrAuth = errors.New("github: authentication failed")
	// ErrNotFound indicates the repository or path does not exist.
	ErrNotFound = errors.New("github: not found")
	// ErrNameConflict indicates the repository name is already taken.
	ErrNameConflict = errors.New("github: repository name conflict")
	// ErrPathConflict indicates the file path already exists.
	ErrPathConflict = errors.New("github: path conflict")
	// ErrStaleRevision indicates the supplied revision token no longer matches remote state.
	ErrStaleRevision = errors.New("github: stale revision")
	// ErrRemote covers every other backend rejection.
	ErrRemote = errors.New("github: remote error")

	errMissingToken = errors.New("access token is required")
	noOpLogger      = zap.NewNop()
)

type repositoriesAPI interface {
	Create(ctx context.Context, org string, repo *github.Repository) (*github.Repository, *github.Response, error)
	Delete(ctx context.Context, owner, repo string) (*github.Response, error)
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	DeleteFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

type usersAPI interface {
	Get(ctx context.Context, user string) (*github.User, *github.Response, error)
}

type gitAPI interface {
	GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error)
}

// AdapterConfig describes the dependencies of the content adapter.
type AdapterConfig struct {
	Token  string
	Logger *zap.Logger
}

// Adapter is the remote content side of the publisher.
type Adapter struct {
	repositories repositoriesAPI
	users        usersAPI
	git          gitAPI
	logger       *zap.Logger
	owner        string
}

// NewAdapter builds a token-authenticated GitHub client.
func NewAdapter(ctx context.Context, cfg AdapterConfig) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errMissingToken
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	client := github.NewClient(oauth2.NewClient(ctx, source))

	return &Adapter{
		repositories: client.Repositories,
		users:        client.Users,
		git:          client.Git,
		logger:       logger,
	}, nil
}

// RepositoryInfo is returned when a course repository is created.
type RepositoryInfo struct {
	Name          string
	HTMLURL       string
	DefaultBranch string
}

// FileContent pairs file text with the revision token required for the next write.
type FileContent struct {
	Content       string
	RevisionToken string
}

// Owner resolves and caches the authenticated user's login, used to build raw URLs.
func (a *Adapter) Owner(ctx context.Context) (string, error) {
	if a.owner != "" {
		return a.owner, nil
	}
	user, _, err := a.users.Get(ctx, "")
	if err != nil {
		return "", a.mapError("github.owner", err, nil)
	}
	a.owner = user.GetLogin()
	return a.owner, nil
}

// CreateRepository creates a public repository for a course.
func (a *Adapter) CreateRepository(ctx context.Context, name, description string) (RepositoryInfo, error) {
	repo := &github.Repository{
		Name:          github.String(name),
		Description:   github.String(description),
		Private:       github.Bool(false),
		DefaultBranch: github.String(DefaultBranch),
	}
	created, _, err := a.repositories.Create(ctx, "", repo)
	if err != nil {
		return RepositoryInfo{}, a.mapError("github.create_repository", err, map[int]error{
			http.StatusUnprocessableEntity: ErrNameConflict,
		}, zap.String("repository", name))
	}
	branch := created.GetDefaultBranch()
	if branch == "" {
		branch = DefaultBranch
	}
	return RepositoryInfo{
		Name:          created.GetName(),
		HTMLURL:       created.GetHTMLURL(),
		DefaultBranch: branch,
	}, nil
}

// DeleteRepository removes a course repository by name.
func (a *Adapter) DeleteRepository(ctx context.Context, name string) error {
	owner, err := a.Owner(ctx)
	if err != nil {
		return err
	}
	if _, err := a.repositories.Delete(ctx, owner, name); err != nil {
		return a.mapError("github.delete_repository", err, nil, zap.String("repository", name))
	}
	return nil
}

// CreateFile commits a new file on the default branch and returns its path.
func (a *Adapter) CreateFile(ctx context.Context, repo, path, content, message string) (string, error) {
	owner, err := a.Owner(ctx)
	if err != nil {
		return "", err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(DefaultBranch),
	}
	response, _, err := a.repositories.CreateFile(ctx, owner, repo, path, opts)
	if err != nil {
		return "", a.mapError("github.create_file", err, map[int]error{
			http.StatusUnprocessableEntity: ErrPathConflict,
			http.StatusConflict:            ErrPathConflict,
		}, zap.String("repository", repo), zap.String("path", path))
	}
	return response.Content.GetPath(), nil
}

// ReadFile fetches file content plus the revision token for the next write.
// The token goes stale after any intervening commit to the same path, so it
// must be fetched immediately before each update or delete.
func (a *Adapter) ReadFile(ctx context.Context, repo, path string) (FileContent, error) {
	owner, err := a.Owner(ctx)
	if err != nil {
		return FileContent{}, err
	}
	file, _, _, err := a.repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: DefaultBranch,
	})
	if err != nil {
		return FileContent{}, a.mapError("github.read_file", err, nil,
			zap.String("repository", repo), zap.String("path", path))
	}
	if file == nil {
		return FileContent{}, fmt.Errorf("%w: %s is a directory", ErrRemote, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return FileContent{}, fmt.Errorf("%w: decoding %s: %v", ErrRemote, path, err)
	}
	return FileContent{Content: content, RevisionToken: file.GetSHA()}, nil
}

// UpdateFile replaces file content; revisionToken must match the current blob SHA.
func (a *Adapter) UpdateFile(ctx context.Context, repo, path, content, revisionToken, message string) error {
	owner, err := a.Owner(ctx)
	if err != nil {
		return err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		SHA:     github.String(revisionToken),
		Branch:  github.String(DefaultBranch),
	}
	if _, _, err := a.repositories.UpdateFile(ctx, owner, repo, path, opts); err != nil {
		return a.mapError("github.update_file", err, map[int]error{
			http.StatusConflict: ErrStaleRevision,
		}, zap.String("repository", repo), zap.String("path", path))
	}
	return nil
}

// DeleteFile removes a file; revisionToken must match the current blob SHA.
func (a *Adapter) DeleteFile(ctx context.Context, repo, path, revisionToken, message string) error {
	owner, err := a.Owner(ctx)
	if err != nil {
		return err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(revisionToken),
		Branch:  github.String(DefaultBranch),
	}
	if _, _, err := a.repositories.DeleteFile(ctx, owner, repo, path, opts); err != nil {
		return a.mapError("github.delete_file", err, map[int]error{
			http.StatusConflict: ErrStaleRevision,
		}, zap.String("repository", repo), zap.String("path", path))
	}
	return nil
}

// ListFiles walks the default branch tree and returns every blob path under dir.
// There is no atomic directory delete; callers remove the returned files one
// by one, fetching a fresh revision token for each.
func (a *Adapter) ListFiles(ctx context.Context, repo, dir string) ([]string, error) {
	owner, err := a.Owner(ctx)
	if err != nil {
		return nil, err
	}
	tree, _, err := a.git.GetTree(ctx, owner, repo, DefaultBranch, true)
	if err != nil {
		return nil, a.mapError("github.list_files", err, nil,
			zap.String("repository", repo), zap.String("dir", dir))
	}

	prefix := strings.TrimSuffix(dir, "/")
	if prefix != "" {
		prefix += "/"
	}
	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if prefix != "" && !strings.HasPrefix(path, prefix) {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (a *Adapter) mapError(operation string, err error, byStatus map[int]error, fields ...zap.Field) error {
	status := 0
	var responseErr *github.ErrorResponse
	if errors.As(err, &responseErr) && responseErr.Response != nil {
		status = responseErr.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		status = http.StatusForbidden
	}

	mapped := ErrRemote
	switch {
	case byStatus[status] != nil:
		mapped = byStatus[status]
	case status == http.StatusUnauthorized:
		mapped = ErrAuth
	case status == http.StatusNotFound:
		mapped = ErrNotFound
	}

	attrs := append([]zap.Field{
		zap.String("operation", operation),
		zap.Int("status", status),
		zap.Error(err),
	}, fields...)
	a.logger.Error("github adapter error", attrs...)

	return fmt.Errorf("%w: %s: %v", mapped, operation, err)
}
