package storage

import (
	"context"
	"fmt"
	"log/slog"

	"finanzapp/internal/core"
)

// AddComment stores c under its expense, assigning an ID and creation time.
// The expense must exist.
func (r *SQLiteRepository) AddComment(ctx context.Context, c core.Comment) (core.Comment, error) {
	if c.ID == "" {
		c.ID = core.NewExpenseID()
	}
	c.CreatedAt = r.now().UTC()

	res, err := r.db.ExecContext(ctx, `INSERT INTO comments (id, expense_id, author, body, created_at)
		SELECT ?, id, ?, ?, ? FROM expenses WHERE id = ?`,
		c.ID, c.Author, c.Text, formatTimestamp(c.CreatedAt), c.ExpenseID)
	if err != nil {
		return core.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Comment{}, err
	}

	slog.InfoContext(ctx, "Comment added", "id", c.ID, "expense_id", c.ExpenseID)
	return c, nil
}

// ListComments returns the comments of an expense, oldest first.
func (r *SQLiteRepository) ListComments(ctx context.Context, expenseID string) ([]core.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, expense_id, author, body, created_at
		FROM comments WHERE expense_id = ? ORDER BY created_at, id`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []core.Comment
	for rows.Next() {
		var (
			c       core.Comment
			created string
		)
		if err := rows.Scan(&c.ID, &c.ExpenseID, &c.Author, &c.Text, &created); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = parseTimestamp(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

// DeleteComment removes one comment, or reports core.ErrCommentNotFound.
func (r *SQLiteRepository) DeleteComment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrCommentNotFound
	}
	slog.InfoContext(ctx, "Comment deleted", "id", id)
	return nil
}
