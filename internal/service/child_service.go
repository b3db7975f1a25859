package service

import (
	"context"
	"strings"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
)

type ChildService struct {
	children    *repository.ChildRepository
	enrollments *repository.EnrollmentRepository
}

func NewChildService(children *repository.ChildRepository, enrollments *repository.EnrollmentRepository) *ChildService {
	return &ChildService{
		children:    children,
		enrollments: enrollments,
	}
}

func (s *ChildService) Create(ctx context.Context, parentID uint, req models.ChildRequest) (*models.Child, error) {
	child := &models.Child{
		ParentID:    parentID,
		FullName:    strings.TrimSpace(req.FullName),
		DateOfBirth: req.DateOfBirth,
		Notes:       req.Notes,
	}
	if err := s.children.Create(ctx, child); err != nil {
		return nil, dbError(err)
	}
	return child, nil
}

func (s *ChildService) List(ctx context.Context, parentID uint) ([]models.Child, error) {
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, dbError(err)
	}
	return children, nil
}

// Get returns 404 for children of other parents.
func (s *ChildService) Get(ctx context.Context, parentID, childID uint) (*models.Child, error) {
	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		return nil, notFoundOr(err, "Child not found")
	}
	if child.ParentID != parentID {
		return nil, NotFound("Child not found")
	}
	return child, nil
}

func (s *ChildService) Update(ctx context.Context, parentID, childID uint, req models.ChildRequest) (*models.Child, error) {
	child, err := s.Get(ctx, parentID, childID)
	if err != nil {
		return nil, err
	}
	child.FullName = strings.TrimSpace(req.FullName)
	child.DateOfBirth = req.DateOfBirth
	child.Notes = req.Notes
	if err := s.children.Update(ctx, child); err != nil {
		return nil, dbError(err)
	}
	return child, nil
}

func (s *ChildService) Delete(ctx context.Context, parentID, childID uint) error {
	child, err := s.Get(ctx, parentID, childID)
	if err != nil {
		return err
	}
	active, err := s.enrollments.CountActiveForChild(ctx, child.ID)
	if err != nil {
		return dbError(err)
	}
	if active > 0 {
		return Conflict("Child has active enrollments")
	}
	return dbError(s.children.Delete(ctx, child.ID))
}
