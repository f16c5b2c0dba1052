package sheets

import (
	"context"
	"errors"
)

// Header is the first row of an export sheet. Column A holds the expense
// id and is the lookup key for updates and deletes.
var Header = []string{"ID", "Fecha", "Nombre", "Categoría", "Comercio", "Monto", "Método de pago", "RFC", "Proyecto"}

// Row is one exported expense, already formatted for people to read.
type Row struct {
	ID            string
	Date          string // YYYY-MM-DD
	Name          string
	Category      string
	Merchant      string
	Amount        string // locale-formatted currency
	PaymentMethod string
	RFC           string
	ProjectID     string
}

// Values returns the row cells in Header order.
func (r Row) Values() []any {
	return []any{r.ID, r.Date, r.Name, r.Category, r.Merchant, r.Amount, r.PaymentMethod, r.RFC, r.ProjectID}
}

// RowFromValues is the inverse of Row.Values. Missing trailing cells are empty.
func RowFromValues(cells []string) Row {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return Row{
		ID:            get(0),
		Date:          get(1),
		Name:          get(2),
		Category:      get(3),
		Merchant:      get(4),
		Amount:        get(5),
		PaymentMethod: get(6),
		RFC:           get(7),
		ProjectID:     get(8),
	}
}

var ErrEmptyRowID = errors.New("row id is empty")

// Ports for outbound adapters.
type (
	// RowWriter keeps one row per expense id in an export sink.
	RowWriter interface {
		// UpsertRow replaces the row with r.ID or appends a new one.
		UpsertRow(ctx context.Context, r Row) (rowRef string, err error)
		// DeleteRow removes the row with id. Missing rows are not an error.
		DeleteRow(ctx context.Context, id string) error
	}

	// RowReader lists the exported rows, in sheet order.
	RowReader interface {
		Rows(ctx context.Context) ([]Row, error)
	}
)
