package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"finanzapp/internal/sheets"
)

var (
	_ sheets.RowWriter = (*Store)(nil)
	_ sheets.RowReader = (*Store)(nil)
)

// Store is an in-process export sink, used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
	// Fail, when set, is returned by every write.
	Fail error
}

func New() *Store {
	return &Store{}
}

// UpsertRow stores r and returns a synthetic row reference.
func (s *Store) UpsertRow(_ context.Context, r sheets.Row) (string, error) {
	if r.ID == "" {
		return "", sheets.ErrEmptyRowID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return "", s.Fail
	}
	if i := s.index(r.ID); i >= 0 {
		s.rows[i] = r
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) DeleteRow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	if i := s.index(id); i >= 0 {
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	return nil
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows(_ context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows), nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.rows, func(r sheets.Row) bool { return r.ID == id })
}
