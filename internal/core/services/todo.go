package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/core/ports"
)

type todoService struct {
	repo ports.Repository
}

// NewTodoService scopes every operation to the owning user. A todo
// belonging to someone else is reported as not found, not forbidden.
func NewTodoService(repo ports.Repository) ports.TodoService {
	return &todoService{repo: repo}
}

func (s *todoService) Create(ctx context.Context, userID, title, description string) (*domain.Todo, error) {
	if err := domain.ValidateTodoTitle(title); err != nil {
		return nil, err
	}

	now := time.Now()
	todo := &domain.Todo{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTodo(ctx, todo); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

func (s *todoService) Get(ctx context.Context, id, userID string) (*domain.Todo, error) {
	todo, err := s.repo.GetTodo(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, domain.ErrNotFound
	}
	return todo, nil
}

func (s *todoService) List(ctx context.Context, userID string) ([]domain.Todo, error) {
	return s.repo.ListTodosForUser(ctx, userID)
}

func (s *todoService) Update(ctx context.Context, id, userID string, title, description *string, done *bool) (*domain.Todo, error) {
	todo, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if title != nil {
		if err := domain.ValidateTodoTitle(*title); err != nil {
			return nil, err
		}
		todo.Title = *title
	}
	if description != nil {
		todo.Description = *description
	}
	if done != nil {
		todo.Done = *done
	}
	if err := s.repo.UpdateTodo(ctx, todo); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return todo, nil
}

func (s *todoService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.DeleteTodo(ctx, id, userID)
}
