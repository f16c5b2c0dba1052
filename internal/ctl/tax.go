package ctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finanzapp/internal/core"
	"finanzapp/internal/services"
	"finanzapp/internal/validate"
)

func taxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "IVA and deductibility helpers",
	}
	cmd.AddCommand(taxIVACmd(a), taxDeductibleCmd())
	return cmd
}

func taxIVACmd(a *app) *cobra.Command {
	var included bool
	cmd := &cobra.Command{
		Use:   "iva [amount]",
		Short: "Split an amount into subtotal and 16% IVA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, msg := services.ParseAmount(args[0])
			if msg != "" {
				return fmt.Errorf("%w amount %q: %s", errInvalid, args[0], msg)
			}
			b := core.CalculateIVA(amount)
			if included {
				b = core.ExtractIVA(amount)
			}
			out := cmd.OutOrStdout()
			for _, line := range []struct {
				label string
				m     core.Money
			}{{"subtotal", b.Subtotal}, {"iva", b.IVA}, {"total", b.Total}} {
				fmt.Fprintf(out, "%-10s%s\n", line.label, a.formatter.FormatCurrency(line.m.Amount()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&included, "included", false, "amount already includes IVA")
	return cmd
}

func taxDeductibleCmd() *cobra.Command {
	var (
		rfc     string
		invoice bool
	)
	cmd := &cobra.Command{
		Use:   "deductible [category]",
		Short: "Check an expense category against the basic SAT rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := core.CheckDeductible(args[0], validate.IsValidRFC(rfc), invoice)
			out := cmd.OutOrStdout()
			verdict := "no"
			if d.Deductible {
				verdict = "yes"
			}
			fmt.Fprintf(out, "deductible: %s\n", verdict)
			for _, r := range d.Reasons {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			if len(d.Recommendations) > 0 {
				fmt.Fprintf(out, "note: %s\n", strings.Join(d.Recommendations, "; "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rfc, "rfc", "", "merchant RFC")
	cmd.Flags().BoolVar(&invoice, "invoice", false, "a CFDI invoice was issued")
	return cmd
}
