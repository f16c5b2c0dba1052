package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finanzapp/internal/collection"
	"finanzapp/internal/core"
	"finanzapp/internal/form"
	"finanzapp/internal/format"
	"finanzapp/internal/services"
)

const listNameWidth = 32

var fieldPrompts = map[string]string{
	services.FieldProjectID:     "Project",
	services.FieldName:          "Name",
	services.FieldAmount:        "Amount",
	services.FieldDate:          "Date (YYYY-MM-DD)",
	services.FieldCategory:      "Category",
	services.FieldMerchant:      "Merchant",
	services.FieldDescription:   "Description",
	services.FieldPaymentMethod: "Payment method",
	services.FieldRFC:           "RFC",
	services.FieldTaxAmount:     "IVA included",
}

var paymentMethods = []string{
	string(core.PaymentCard), string(core.PaymentCash), string(core.PaymentTransfer), string(core.PaymentOther),
}

func expenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and list expenses",
	}
	cmd.AddCommand(expenseAddCmd(a), expenseListCmd(a), expenseSummaryCmd(a))
	return cmd
}

func expenseAddCmd(a *app) *cobra.Command {
	var noInput bool
	values := make(map[string]*string, len(services.ExpenseFields))
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense, prompting for missing fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			given := make(map[string]string)
			for _, field := range services.ExpenseFields {
				if cmd.Flags().Changed(flagName(field)) {
					given[field] = *values[field]
				}
			}

			loc := a.formatter.Profile().Location()
			f := services.NewExpenseForm(a.cfg.DefaultProjectID, a.now(), loc)
			if err := fillExpenseForm(cmd.Context(), a.opts.Prompter, f, given, !noInput); err != nil {
				return err
			}

			e, err := services.ExpenseFromForm(f, loc)
			if errors.Is(err, services.ErrInvalidForm) {
				writeFormErrors(cmd.ErrOrStderr(), f)
				return err
			}
			if err != nil {
				return err
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			created, err := svc.CreateExpense(cmd.Context(), e)
			if err != nil {
				return fmt.Errorf("save expense: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s  %s  %s  %s\n",
				created.ID,
				a.formatter.FormatDate(created.Date.Time, format.Display),
				created.Name,
				a.formatter.FormatCurrency(created.Amount.Amount()))
			return nil
		},
	}
	for _, field := range services.ExpenseFields {
		values[field] = cmd.Flags().String(flagName(field), "", strings.ToLower(fieldPrompts[field]))
	}
	cmd.Flags().BoolVar(&noInput, "no-input", false, "never prompt; fail when required fields are missing")
	return cmd
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// fillExpenseForm drives f the way an input screen does: every answer is a
// change followed by a blur, so field errors appear as the user moves on.
// Fields passed as flags are applied first; the rest are asked for when
// interactive is set.
func fillExpenseForm(ctx context.Context, p Prompter, f *form.Form, given map[string]string, interactive bool) error {
	for _, field := range services.ExpenseFields {
		if v, ok := given[field]; ok {
			f.HandleChange(field, v)
			f.HandleBlur(field)
		}
	}
	if !interactive {
		return nil
	}

	for _, field := range services.ExpenseFields {
		if _, ok := given[field]; ok && f.Error(field) == "" {
			continue
		}
		if err := askField(ctx, p, f, field); err != nil {
			return err
		}
	}
	return nil
}

func askField(ctx context.Context, p Prompter, f *form.Form, field string) error {
	current, _ := f.Value(field).(string)

	if field == services.FieldPaymentMethod {
		def := slices.Index(paymentMethods, current)
		i, err := p.Select(ctx, SelectConfig{
			Message: fieldPrompts[field],
			Options: paymentMethods,
			Default: def,
		})
		if err != nil {
			return err
		}
		if i < 0 || i >= len(paymentMethods) {
			return fmt.Errorf("payment method choice %d out of range", i)
		}
		f.HandleChange(field, paymentMethods[i])
		f.HandleBlur(field)
		return nil
	}

	if field == services.FieldCategory && current == "" {
		merchant, _ := f.Value(services.FieldMerchant).(string)
		current = core.SuggestCategory(merchant)
	}

	answer, err := p.Input(ctx, InputConfig{
		Message: fieldPrompts[field],
		Default: current,
		Validator: func(s string) error {
			f.HandleChange(field, s)
			f.HandleBlur(field)
			if msg := f.Error(field); msg != "" {
				return errors.New(msg)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	f.HandleChange(field, answer)
	f.HandleBlur(field)
	return nil
}

func writeFormErrors(w io.Writer, f *form.Form) {
	errs := f.Errors()
	for _, field := range f.Fields() {
		if msg, ok := errs[field]; ok {
			fmt.Fprintf(w, "  %s: %s\n", flagName(field), msg)
		}
	}
}

func expenseListCmd(a *app) *cobra.Command {
	var (
		projectID, category, search string
		from, to                    string
		limit, offset               int
		ascending                   bool
		flat                        bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses grouped by category, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := core.Filter{
				ProjectID: projectID,
				Category:  category,
				Search:    search,
				Limit:     limit,
				Offset:    offset,
			}
			var err error
			if filter.From, err = parseDay(from); err != nil {
				return err
			}
			if filter.To, err = parseDay(to); err != nil {
				return err
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			page, err := svc.ListExpenses(cmd.Context(), filter)
			if err != nil {
				return err
			}

			order := collection.Descending
			if ascending {
				order = collection.Ascending
			}
			items := collection.SortByDate(page.Items, func(e core.Expense) (time.Time, bool) {
				return e.Date.Time, !e.Date.IsZero()
			}, order)

			out := cmd.OutOrStdout()
			if flat {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, e := range items {
					a.writeExpenseRow(tw, e)
				}
				tw.Flush()
			} else {
				a.writeGrouped(out, items)
			}
			fmt.Fprintf(out, "%d of %d expenses\n", len(items), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVarP(&search, "search", "q", "", "text in name, merchant or description")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", core.DefaultListLimit, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&ascending, "asc", false, "oldest first")
	cmd.Flags().BoolVar(&flat, "flat", false, "do not group by category")
	return cmd
}

func parseDay(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return core.DateOf(t), nil
}

func (a *app) writeGrouped(w io.Writer, items []core.Expense) {
	groups := collection.GroupByOrdered(items, func(e core.Expense) string {
		if e.Category == "" {
			return "Uncategorized"
		}
		return e.Category
	})
	for _, g := range groups {
		var total core.Money
		for _, e := range g.Items {
			total = total.Add(e.Amount)
		}
		fmt.Fprintf(w, "%s (%d) %s\n", g.Key, len(g.Items), a.formatter.FormatCurrency(total.Amount()))

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range g.Items {
			fmt.Fprint(tw, "  ")
			a.writeExpenseRow(tw, e)
		}
		tw.Flush()
	}
}

func (a *app) writeExpenseRow(w io.Writer, e core.Expense) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		a.formatter.FormatDate(e.Date.Time, format.Display),
		format.Truncate(e.Name, listNameWidth),
		a.formatter.FormatCurrency(e.Amount.Amount()),
		e.ID)
}

func expenseSummaryCmd(a *app) *cobra.Command {
	var projectID string
	var year, month int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Month total by category, compared with the month before",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if projectID == "" {
				projectID = a.cfg.DefaultProjectID
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			sum, err := svc.MonthSummary(cmd.Context(), projectID, year, month)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			profile := a.formatter.Profile()
			fmt.Fprintf(out, "%s %d: %s in %d expenses\n",
				profile.MonthName(time.Month(month)), year,
				a.formatter.FormatCurrency(sum.Current.Total.Amount()), sum.Current.Count)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			for _, c := range sum.Current.ByCategory {
				fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", c.Name, a.formatter.FormatCurrency(c.Amount.Amount()), c.Share.StringFixed(1))
			}
			tw.Flush()

			change := format.CalculatePercentage(sum.Change.Amount(), sum.Previous.Total.Amount())
			fmt.Fprintf(out, "vs previous month: %s (%s%%)\n",
				a.formatter.FormatCurrency(sum.Change.Amount()), change.StringFixed(1))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id (default $DEFAULT_PROJECT_ID)")
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	return cmd
}
