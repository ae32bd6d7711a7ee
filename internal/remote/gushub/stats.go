package gushub

import (
	"context"
	"fmt"
	"net/http"
)

// UserRecord is the LMS view of a student account.
type UserRecord struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// UserStatistics aggregates a student's course progress.
type UserStatistics struct {
	CoursesEnrolled int `json:"coursesEnrolled"`
	CoursesFinished int `json:"coursesFinished"`
	StepsCompleted  int `json:"stepsCompleted"`
	StepsTotal      int `json:"stepsTotal"`
}

// GradeStatistics aggregates a student's grades.
type GradeStatistics struct {
	AverageGrade  *float64       `json:"averageGrade"`
	TotalGrades   int            `json:"totalGrades"`
	GradesByValue map[string]int `json:"gradesByValue"`
}

// GroupRecord is the LMS view of a student group.
type GroupRecord struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Students    []UserRecord `json:"students,omitempty"`
}

// Users lists every student account.
func (c *Client) Users(ctx context.Context) ([]UserRecord, error) {
	var records []UserRecord
	err := c.doAuthenticated(ctx, http.MethodGet, "/api/users", nil, &records)
	return records, err
}

// User fetches a single student account.
func (c *Client) User(ctx context.Context, userID int64) (UserRecord, error) {
	var record UserRecord
	err := c.doAuthenticated(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", userID), nil, &record)
	return record, err
}

// UserStatistics fetches a student's progress aggregate.
func (c *Client) UserStatistics(ctx context.Context, userID int64) (UserStatistics, error) {
	var stats UserStatistics
	err := c.doAuthenticated(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/statistics", userID), nil, &stats)
	return stats, err
}

// UserGradeStatistics fetches a student's grade aggregate.
func (c *Client) UserGradeStatistics(ctx context.Context, userID int64) (GradeStatistics, error) {
	var stats GradeStatistics
	err := c.doAuthenticated(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/grades/statistics", userID), nil, &stats)
	return stats, err
}

// Groups lists every student group.
func (c *Client) Groups(ctx context.Context) ([]GroupRecord, error) {
	var records []GroupRecord
	err := c.doAuthenticated(ctx, http.MethodGet, "/api/groups", nil, &records)
	return records, err
}

// Group fetches a single group with its roster.
func (c *Client) Group(ctx context.Context, groupID int64) (GroupRecord, error) {
	var record GroupRecord
	err := c.doAuthenticated(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d", groupID), nil, &record)
	return record, err
}
