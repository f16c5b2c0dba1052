package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
)

type commentResponse struct {
	ID         string    `json:"id"`
	ExpenseID  string    `json:"expense_id"`
	Author     string    `json:"author,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedAgo string    `json:"created_ago"`
}

func (s *Server) toCommentResponse(c core.Comment) commentResponse {
	return commentResponse{
		ID:         c.ID,
		ExpenseID:  c.ExpenseID,
		Author:     c.Author,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
		CreatedAgo: format.FormatRelative(c.CreatedAt, s.now()),
	}
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.comments.Comments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList)
		return
	}
	items := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		items = append(items, s.toCommentResponse(c))
	}
	NewResponse().Data(map[string]any{"items": items, "total": len(items)}).Write(w)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	parser, ok := parseBody(w, r)
	if !ok {
		return
	}

	c, err := s.comments.AddComment(r.Context(), mux.Vars(r)["id"],
		parser.Get("author"), parser.Get(services.FieldCommentText))
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Message("Comment added").
		Data(s.toCommentResponse(c)).
		Write(w)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.comments.DeleteComment(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err, log.OpDelete)
		return
	}
	NewResponse().Message("Comment deleted").Write(w)
}

var _ CommentService = (*services.CommentService)(nil)
