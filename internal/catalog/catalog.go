// Package catalog manages courses and their modules.
package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/google/uuid"
)

const (
	coursesTable = "courses"
	modulesTable = "modules"

	MaxTitleLength = 200
	DefaultPoints  = 10
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Module struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Points    float64   `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

type CourseInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// ModuleInput leaves Position and Points optional: a missing position
// appends the module, missing points default to DefaultPoints.
type ModuleInput struct {
	Title    string   `json:"title"`
	Position *int     `json:"position"`
	Points   *float64 `json:"points"`
}

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: func() time.Time { return time.Now().UTC() }}
}

func courseFromRow(r store.Row) Course {
	return Course{
		ID:          r.String("id"),
		Title:       r.String("title"),
		Description: r.StringPtr("description"),
		CreatedAt:   r.Time("created_at"),
	}
}

func moduleFromRow(r store.Row) Module {
	return Module{
		ID:        r.String("id"),
		CourseID:  r.String("course_id"),
		Title:     r.String("title"),
		Position:  r.Int("position"),
		Points:    r.Float("points"),
		CreatedAt: r.Time("created_at"),
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &errors.ValidationError{Field: "title", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", &errors.ValidationError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
	}
	return title, nil
}

func (s *Service) ListCourses(ctx context.Context) ([]Course, error) {
	res, err := s.store.Select(ctx, store.From(coursesTable).
		Order("created_at", false).
		Order("title", false))
	if err != nil {
		return nil, err
	}
	courses := make([]Course, 0, len(res.Rows))
	for _, r := range res.Rows {
		courses = append(courses, courseFromRow(r))
	}
	return courses, nil
}

func (s *Service) GetCourse(ctx context.Context, id string) (*Course, error) {
	res, err := s.store.Select(ctx, store.From(coursesTable).Eq("id", id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, &errors.NotFoundError{Resource: "course", Identifier: id}
	}
	c := courseFromRow(res.Rows[0])
	return &c, nil
}

func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	var description interface{}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			description = d
		}
	}

	row := store.Row{
		"id":          uuid.New().String(),
		"title":       title,
		"description": description,
		"created_at":  s.now(),
	}
	if _, err := s.store.Insert(ctx, coursesTable, row); err != nil {
		return nil, err
	}
	c := courseFromRow(row)
	return &c, nil
}

// DeleteCourse removes the course and its modules. The course row goes
// first: on Postgres the foreign key cascades to modules and progress in
// the same statement, and the module delete after it only matters for
// stores without that constraint.
func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	n, err := s.store.Delete(ctx, coursesTable, store.Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return &errors.NotFoundError{Resource: "course", Identifier: id}
	}
	_, err = s.store.Delete(ctx, modulesTable, store.Eq("course_id", id))
	return err
}

// ListModules returns a course's modules ordered by position.
func (s *Service) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	res, err := s.store.Select(ctx, store.From(modulesTable).
		Eq("course_id", courseID).
		Order("position", false).
		Order("created_at", false))
	if err != nil {
		return nil, err
	}
	modules := make([]Module, 0, len(res.Rows))
	for _, r := range res.Rows {
		modules = append(modules, moduleFromRow(r))
	}
	return modules, nil
}

func (s *Service) GetModule(ctx context.Context, id string) (*Module, error) {
	res, err := s.store.Select(ctx, store.From(modulesTable).Eq("id", id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, &errors.NotFoundError{Resource: "module", Identifier: id}
	}
	m := moduleFromRow(res.Rows[0])
	return &m, nil
}

func (s *Service) CreateModule(ctx context.Context, courseID string, in ModuleInput) (*Module, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}

	points := float64(DefaultPoints)
	if in.Points != nil {
		points = *in.Points
	}
	if math.IsNaN(points) || math.IsInf(points, 0) || points < 0 {
		return nil, &errors.ValidationError{Field: "points", Message: "must be a non-negative number"}
	}

	existing, err := s.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	position := len(existing) + 1
	if in.Position != nil {
		if *in.Position < 0 {
			return nil, &errors.ValidationError{Field: "position", Message: "must not be negative"}
		}
		position = *in.Position
	}

	row := store.Row{
		"id":         uuid.New().String(),
		"course_id":  courseID,
		"title":      title,
		"position":   position,
		"points":     points,
		"created_at": s.now(),
	}
	if _, err := s.store.Insert(ctx, modulesTable, row); err != nil {
		return nil, err
	}
	m := moduleFromRow(row)
	return &m, nil
}

func (s *Service) DeleteModule(ctx context.Context, id string) error {
	n, err := s.store.Delete(ctx, modulesTable, store.Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return &errors.NotFoundError{Resource: "module", Identifier: id}
	}
	return nil
}
