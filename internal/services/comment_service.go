package services

import (
	"context"
	"fmt"

	"finanzapp/internal/core"
	"finanzapp/internal/log"
)

// CommentStore persists expense comments.
type CommentStore interface {
	AddComment(ctx context.Context, c core.Comment) (core.Comment, error)
	ListComments(ctx context.Context, expenseID string) ([]core.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// ExpenseGetter is the part of Repository comments need.
type ExpenseGetter interface {
	Get(ctx context.Context, id string) (core.Expense, error)
}

// CommentService manages the notes attached to expenses.
type CommentService struct {
	expenses ExpenseGetter
	comments CommentStore
	logger   *log.Logger
}

func NewCommentService(expenses ExpenseGetter, comments CommentStore, logger *log.Logger) *CommentService {
	return &CommentService{
		expenses: expenses,
		comments: comments,
		logger:   logger.WithComponent(log.ComponentExpense),
	}
}

// AddComment attaches text to an existing expense. It returns
// core.ErrNotFound for an unknown expense and a validation error for
// blank or overlong text.
func (s *CommentService) AddComment(ctx context.Context, expenseID, author, text string) (core.Comment, error) {
	c := core.Comment{ExpenseID: expenseID, Author: author, Text: text}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Comment{}, err
	}
	if _, err := s.expenses.Get(ctx, expenseID); err != nil {
		return core.Comment{}, err
	}

	saved, err := s.comments.AddComment(ctx, c)
	if err != nil {
		return core.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	s.logger.InfoContext(ctx, "Comment added",
		log.FieldOperation, log.OpCreate,
		log.FieldExpenseID, expenseID,
		log.FieldCommentID, saved.ID)
	return saved, nil
}

// Comments lists an expense's comments, oldest first.
func (s *CommentService) Comments(ctx context.Context, expenseID string) ([]core.Comment, error) {
	if _, err := s.expenses.Get(ctx, expenseID); err != nil {
		return nil, err
	}
	return s.comments.ListComments(ctx, expenseID)
}

func (s *CommentService) DeleteComment(ctx context.Context, id string) error {
	if err := s.comments.DeleteComment(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Comment deleted", log.FieldOperation, log.OpDelete, log.FieldCommentID, id)
	return nil
}
