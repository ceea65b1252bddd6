package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/core"
	"expensetracker/internal/dashboard"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the document with the starter budget if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.store.GetData(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Document %q ready: budget %s, %d transaction(s)\n",
				a.store.Key(), dashboard.FormatUSD(doc.Budget), len(doc.Transactions))
			return nil
		},
	}
}

type addOptions struct {
	amount      string
	purpose     string
	date        string
	category    string
	paymentMode string
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	o := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  expensetracker add --amount 12.50 --purpose "Lunch" --category other --payment-mode card
  expensetracker add -a 200 -p Books -c college -d 2025-06-14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(o.amount)
			if err != nil {
				return fmt.Errorf("--amount %q: %w", o.amount, err)
			}
			date := o.date
			if date == "" {
				date = core.FormatDate(time.Now())
			}

			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			tx, err := a.store.AddTransaction(cmd.Context(), core.TransactionInput{
				Amount:      amount,
				Purpose:     o.purpose,
				Date:        date,
				Category:    o.category,
				PaymentMode: o.paymentMode,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s -$%s (%s, %s) on %s\n",
				tx.ID, tx.Purpose, dashboard.FormatAmount(tx.Amount), tx.Category, tx.PaymentMode, tx.Date)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.amount, "amount", "a", "", "Amount in USD, e.g. 12.50")
	f.StringVarP(&o.purpose, "purpose", "p", "", "What the money was spent on")
	f.StringVarP(&o.date, "date", "d", "", "Date as YYYY-MM-DD (default today)")
	f.StringVarP(&o.category, "category", "c", core.CategoryOther, "Category (college, other)")
	f.StringVarP(&o.paymentMode, "payment-mode", "m", core.PaymentCash, "Payment mode (cash, card, upi)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newBudgetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "budget AMOUNT",
		Short: "Set the monthly budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			budget, err := a.store.UpdateBudget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Budget set to %s\n", dashboard.FormatUSD(budget))
			return nil
		},
	}
}

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show this month's spending, recent transactions and the last 7 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.store.GetData(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), dashboard.Build(doc, time.Now()))
			return nil
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.store.GetData(cmd.Context())
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), dashboard.FilterByCategory(doc.Transactions, category))
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", core.CategoryAll, `Category to show, "all" for every transaction`)
	return cmd
}

func printSummary(w io.Writer, s dashboard.Summary) {
	fmt.Fprintf(w, "Dashboard for %s\n\n", s.Date)
	fmt.Fprintf(w, "  Monthly Budget:    %s\n", dashboard.FormatUSD(s.Budget))
	fmt.Fprintf(w, "  Spent This Month:  %s\n", dashboard.FormatUSD(s.Spent))
	fmt.Fprintf(w, "  Remaining:         %s (%s)\n", dashboard.FormatUSD(s.Remaining), s.Status)

	fmt.Fprintln(w, "\nRecent Transactions")
	if len(s.Recent) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, t := range s.Recent {
		fmt.Fprintf(w, "  [%s] %s  %s  %s  -$%s\n",
			dashboard.CategoryIcon(t.Category), t.Date, t.Purpose, t.Category, dashboard.FormatAmount(t.Amount))
	}

	fmt.Fprintln(w, "\nDaily Spending")
	for _, d := range s.Series {
		fmt.Fprintf(w, "  %s  %s\n", d.Label(), dashboard.FormatUSD(d.Total))
	}
}

func printTransactions(w io.Writer, ts []core.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPURPOSE\tCATEGORY\tPAYMENT\tAMOUNT")
	for _, t := range ts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t$%s\n", t.Date, t.Purpose, t.Category, t.PaymentMode, dashboard.FormatAmount(t.Amount))
	}
	return tw.Flush()
}
