package ctl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/validate"
)

var dateLayouts = map[string]format.DateFormat{
	"display":  format.Display,
	"datetime": format.DisplayWithTime,
	"api":      format.API,
	"long":     format.Long,
	"short":    "",
}

func formatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render values the way the app shows them",
	}
	cmd.AddCommand(
		formatCurrencyCmd(a),
		formatDateCmd(a),
		formatPercentCmd(),
		formatTruncateCmd(),
		formatInitialsCmd(),
		formatSizeCmd(),
	)
	return cmd
}

func formatCurrencyCmd(a *app) *cobra.Command {
	var noSymbol, noDecimals bool
	var separators string
	cmd := &cobra.Command{
		Use:   "currency [amount]",
		Short: "Format an amount in the configured currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
			if err != nil {
				amount = format.ParseCurrency(args[0])
			}
			out := a.formatter.FormatCurrencyWith(amount, format.CurrencyOptions{
				ShowSymbol:   !noSymbol,
				ShowDecimals: !noDecimals,
				Locale:       separators,
			})
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSymbol, "no-symbol", false, "omit the currency symbol")
	cmd.Flags().BoolVar(&noDecimals, "no-decimals", false, "round to whole units")
	cmd.Flags().StringVar(&separators, "separators", "", "locale whose digit separators to use")
	return cmd
}

func formatDateCmd(a *app) *cobra.Command {
	var layout string
	cmd := &cobra.Command{
		Use:   "date [value]",
		Short: "Format a date (YYYY-MM-DD, RFC 3339 or unix millis)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, ok := dateLayouts[layout]
			if !ok {
				return fmt.Errorf("unknown layout %q: use display, datetime, api, long or short", layout)
			}
			var value any = args[0]
			if ms, err := strconv.ParseInt(args[0], 10, 64); err == nil {
				value = ms
			}
			out := a.formatter.FormatDate(value, df)
			if out == "" {
				return fmt.Errorf("cannot read %q as a date", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&layout, "layout", "l", "display", "display, datetime, api, long or short")
	return cmd
}

func formatPercentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "percent [value] [total]",
		Short: "Share of value in total, one decimal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", args[0])
			}
			total, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid total %q", args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.CalculatePercentage(value, total).StringFixed(1)+"%")
			return nil
		},
	}
}

func formatTruncateCmd() *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "truncate [text]",
		Short: "Shorten text the way list rows do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), format.Truncate(args[0], max))
			return nil
		},
	}
	cmd.Flags().IntVarP(&max, "max", "n", format.DefaultTruncateLength, "maximum characters kept")
	return cmd
}

func formatInitialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initials [name]",
		Short: "Initials of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), format.Initials(args[0]))
			return nil
		},
	}
}

func formatSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size [bytes]",
		Short: "Human readable file size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid byte count %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.FormatFileSize(n))
			return nil
		},
	}
}

func parseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Read user input back into values",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "currency [text]",
		Short: "Extract the amount from text such as \"$1,234.50\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(format.ParseCurrency(args[0]), 'f', -1, 64))
			return nil
		},
	}, &cobra.Command{
		Use:   "date [text]",
		Short: "Normalize a date to YYYY-MM-DD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := format.ParseDate(args[0], a.formatter.Profile().Location())
			if !ok {
				return fmt.Errorf("cannot read %q as a date", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.formatter.FormatDate(t, format.API))
			return nil
		},
	})
	return cmd
}

var errInvalid = errors.New("invalid")

var validateRules = []struct {
	name string
	rule validate.Rule
}{
	{"email", validate.Email},
	{"rfc", validate.RFC},
	{"phone", validate.Phone},
	{"url", validate.URL},
	{"password", validate.Password},
	{"amount", validate.PositiveNumber},
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check values against the form rules",
	}
	for _, v := range validateRules {
		rule := validate.Compose(validate.Required, v.rule)
		cmd.AddCommand(&cobra.Command{
			Use:   v.name + " [value]",
			Short: "Check a " + v.name,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if msg := rule(args[0]); msg != "" {
					return fmt.Errorf("%w %s %q: %s", errInvalid, cmd.Name(), args[0], msg)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			},
		})
	}
	return cmd
}

func idCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print a time-ordered client id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), core.GenerateID())
			return nil
		},
	}
}
