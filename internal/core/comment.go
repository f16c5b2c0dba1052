package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxCommentLength = 1000

// Comment is a note attached to an expense.
type Comment struct {
	ID        string
	ExpenseID string
	Author    string
	Text      string
	CreatedAt time.Time
}

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyComment    = errors.New("empty comment")
	ErrCommentTooLong  = fmt.Errorf("comment too long (max %d characters)", MaxCommentLength)
)

// Normalize trims the text and author.
func (c *Comment) Normalize() {
	c.Text = strings.TrimSpace(c.Text)
	c.Author = strings.TrimSpace(c.Author)
}

func (c Comment) Validate() error {
	if c.ExpenseID == "" {
		return ErrNotFound
	}
	if c.Text == "" {
		return ErrEmptyComment
	}
	if utf8.RuneCountInString(c.Text) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}
