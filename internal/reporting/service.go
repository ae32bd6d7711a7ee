// Package reporting assembles read-only student and group analytics from the
// LMS endpoints. Nothing here touches GitHub or the local catalog; the LMS is
// the only authority on enrollment and grading.
package reporting

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/gushub/manager/internal/remote/gushub"
)

var (
	errMissingClient = errors.New("analytics client is required")
	noOpLogger       = zap.NewNop()
)

// AnalyticsClient is the LMS surface the reports are built from.
type AnalyticsClient interface {
	Users(ctx context.Context) ([]gushub.UserRecord, error)
	User(ctx context.Context, userID int64) (gushub.UserRecord, error)
	UserStatistics(ctx context.Context, userID int64) (gushub.UserStatistics, error)
	UserGradeStatistics(ctx context.Context, userID int64) (gushub.GradeStatistics, error)
	Groups(ctx context.Context) ([]gushub.GroupRecord, error)
	Group(ctx context.Context, groupID int64) (gushub.GroupRecord, error)
}

// ServiceConfig describes the dependencies of the reporting service.
type ServiceConfig struct {
	Client AnalyticsClient
	Logger *zap.Logger
}

// Service builds per-student and per-group progress reports.
type Service struct {
	client AnalyticsClient
	logger *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{client: cfg.Client, logger: logger}, nil
}

// StudentReport joins a student's account, progress, and grade aggregates.
type StudentReport struct {
	User       gushub.UserRecord      `json:"user"`
	Progress   gushub.UserStatistics  `json:"progress"`
	Grades     gushub.GradeStatistics `json:"grades"`
	Completion float64                `json:"completion_percent"`
}

// GroupReport joins a group roster with each member's report.
type GroupReport struct {
	Group    gushub.GroupRecord `json:"group"`
	Students []StudentReport    `json:"students"`
}

// Students lists every student account.
func (s *Service) Students(ctx context.Context) ([]gushub.UserRecord, error) {
	return s.client.Users(ctx)
}

// Groups lists every student group.
func (s *Service) Groups(ctx context.Context) ([]gushub.GroupRecord, error) {
	return s.client.Groups(ctx)
}

// StudentReport fetches the three aggregates for one student.
func (s *Service) StudentReport(ctx context.Context, userID int64) (StudentReport, error) {
	user, err := s.client.User(ctx, userID)
	if err != nil {
		return StudentReport{}, err
	}
	progress, err := s.client.UserStatistics(ctx, userID)
	if err != nil {
		return StudentReport{}, err
	}
	grades, err := s.client.UserGradeStatistics(ctx, userID)
	if err != nil {
		return StudentReport{}, err
	}
	return StudentReport{
		User:       user,
		Progress:   progress,
		Grades:     grades,
		Completion: completionPercent(progress),
	}, nil
}

// GroupReport fetches the roster and a report per member. A member whose
// aggregates fail to load is skipped with a warning rather than failing the
// whole group.
func (s *Service) GroupReport(ctx context.Context, groupID int64) (GroupReport, error) {
	group, err := s.client.Group(ctx, groupID)
	if err != nil {
		return GroupReport{}, err
	}
	report := GroupReport{Group: group, Students: make([]StudentReport, 0, len(group.Students))}
	for _, member := range group.Students {
		student, err := s.StudentReport(ctx, member.ID)
		if err != nil {
			s.logger.Warn("skipping group member, report unavailable",
				zap.Int64("group_id", groupID),
				zap.Int64("user_id", member.ID),
				zap.Error(err))
			continue
		}
		report.Students = append(report.Students, student)
	}
	return report, nil
}

func completionPercent(progress gushub.UserStatistics) float64 {
	if progress.StepsTotal == 0 {
		return 0
	}
	return float64(progress.StepsCompleted) / float64(progress.StepsTotal) * 100
}
