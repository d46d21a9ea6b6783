package project

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thenoetrevino/collabflow/internal/auth"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/types"
)

const (
	Collection    = "projects"
	maxNameLength = 100
)

// Service defines all project-related business operations
type Service interface {
	// Read operations
	FetchProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	Projects() []models.Project

	// Write operations
	CreateProject(ctx context.Context, req CreateProjectRequest) (models.Project, error)
	UpdateProject(ctx context.Context, req UpdateProjectRequest) error
	DeleteProject(ctx context.Context, id string) error
}

// CreateProjectRequest encapsulates data for creating a project
type CreateProjectRequest struct {
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Members     []string
}

// UpdateProjectRequest encapsulates data for updating a project
type UpdateProjectRequest struct {
	ID          string
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Members     *[]string
}

type service struct {
	store    docstore.Store
	identity auth.Identity
	logger   *slog.Logger
	now      types.Clock
	newID    types.IDFunc

	mu       sync.RWMutex
	projects []models.Project
}

// Option configures the service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now types.Clock) Option {
	return func(s *service) { s.now = now }
}

func WithIDs(newID types.IDFunc) Option {
	return func(s *service) { s.newID = newID }
}

// NewService creates a project service acting on behalf of identity.
func NewService(store docstore.Store, identity auth.Identity, opts ...Option) Service {
	s := &service{
		store:    store,
		identity: identity,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    types.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) currentUser() (string, error) {
	if s.identity == nil {
		return "", ErrAuthRequired
	}
	u, ok := s.identity.CurrentUser()
	if !ok {
		return "", ErrAuthRequired
	}
	return u.ID, nil
}

// Projects returns the locally cached list.
func (s *service) Projects() []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Project(nil), s.projects...)
}

// FetchProjects loads every project the current user is a member of.
func (s *service) FetchProjects(ctx context.Context) ([]models.Project, error) {
	uid, err := s.currentUser()
	if err != nil {
		return nil, err
	}

	snaps, err := s.store.Query(ctx, Collection, docstore.Where("members", docstore.OpArrayContains, uid))
	if err != nil {
		return nil, docstore.Persist("query projects", nil, err)
	}

	projects := make([]models.Project, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decodeProject(snap)
		if err != nil {
			return nil, docstore.Persist("decode project", snap.Path, err)
		}
		projects = append(projects, p)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})

	s.mu.Lock()
	s.projects = projects
	s.mu.Unlock()
	return append([]models.Project(nil), projects...), nil
}

// GetProject reads one project.
func (s *service) GetProject(ctx context.Context, id string) (models.Project, error) {
	if id == "" {
		return models.Project{}, ErrNoProjectContext
	}
	p := docstore.Doc(Collection, id)
	snap, err := s.store.Get(ctx, p)
	if err != nil {
		return models.Project{}, docstore.Persist("get project", p, err)
	}
	if !snap.Exists {
		return models.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return decodeProject(snap)
}

// CreateProject records the current user as creator and first member.
func (s *service) CreateProject(ctx context.Context, req CreateProjectRequest) (models.Project, error) {
	uid, err := s.currentUser()
	if err != nil {
		return models.Project{}, err
	}
	if err := validateName(req.Name); err != nil {
		return models.Project{}, err
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return models.Project{}, err
	}

	now := s.now()
	project := models.Project{
		ID:          s.newID(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Members:     withMember(req.Members, uid),
		CreatedBy:   uid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	doc, err := docstore.Encode(project)
	if err != nil {
		return models.Project{}, err
	}
	p := docstore.Doc(Collection, project.ID)
	if err := s.store.Set(ctx, p, doc); err != nil {
		err = docstore.Persist("create project", p, err)
		s.logger.Error("failed to create project", "error", err)
		return models.Project{}, err
	}

	s.mu.Lock()
	s.projects = append(s.projects, project)
	s.mu.Unlock()
	return project, nil
}

// UpdateProject writes the provided fields and a fresh updatedAt.
func (s *service) UpdateProject(ctx context.Context, req UpdateProjectRequest) error {
	if req.ID == "" {
		return ErrNoProjectContext
	}
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return err
		}
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return err
	}

	now := s.now()
	fields := docstore.Document{"updatedAt": now}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.StartDate != nil {
		fields["startDate"] = *req.StartDate
	}
	if req.EndDate != nil {
		fields["endDate"] = *req.EndDate
	}
	if req.Members != nil {
		fields["members"] = append([]string{}, *req.Members...)
	}

	p := docstore.Doc(Collection, req.ID)
	if err := s.store.Update(ctx, p, fields); err != nil {
		err = docstore.Persist("update project", p, err)
		s.logger.Error("failed to update project", "project_id", req.ID, "error", err)
		return err
	}

	s.mu.Lock()
	for i := range s.projects {
		if s.projects[i].ID != req.ID {
			continue
		}
		pr := &s.projects[i]
		if req.Name != nil {
			pr.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			pr.Description = *req.Description
		}
		if req.StartDate != nil {
			pr.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			pr.EndDate = req.EndDate
		}
		if req.Members != nil {
			pr.Members = append([]string{}, *req.Members...)
		}
		pr.UpdatedAt = now
	}
	s.mu.Unlock()
	return nil
}

// DeleteProject removes the project document.
func (s *service) DeleteProject(ctx context.Context, id string) error {
	if id == "" {
		return ErrNoProjectContext
	}
	p := docstore.Doc(Collection, id)
	if err := s.store.Delete(ctx, p); err != nil {
		err = docstore.Persist("delete project", p, err)
		s.logger.Error("failed to delete project", "project_id", id, "error", err)
		return err
	}

	s.mu.Lock()
	kept := s.projects[:0]
	for _, pr := range s.projects {
		if pr.ID != id {
			kept = append(kept, pr)
		}
	}
	s.projects = kept
	s.mu.Unlock()
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrBadDates
	}
	return nil
}

func withMember(members []string, uid string) []string {
	out := append([]string{}, members...)
	for _, m := range out {
		if m == uid {
			return out
		}
	}
	return append([]string{uid}, out...)
}

func decodeProject(snap docstore.Snapshot) (models.Project, error) {
	var p models.Project
	if err := snap.Decode(&p); err != nil {
		return models.Project{}, err
	}
	if p.ID == "" {
		p.ID = snap.Path.ID
	}
	if p.Members == nil {
		p.Members = []string{}
	}
	return p, nil
}
