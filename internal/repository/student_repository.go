package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// StudentRepository reads the externally owned student collection.
type StudentRepository struct {
	students collection[models.Student]
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(store docstore.Store) *StudentRepository {
	return &StudentRepository{students: newCollection[models.Student](store, CollectionStudents)}
}

// FindByID returns a student or docstore.ErrNotFound.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, err := r.students.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return student, nil
}

// List returns every student.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	students, err := r.students.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
