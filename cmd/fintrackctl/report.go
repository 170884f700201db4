package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/reporting"
)

func newReportCmd(a *app) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print ledger reports for --user",
	}

	var month, year string
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Totals, averages and category breakdown for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			uid, err := a.userID(cmd.Context(), store)
			if err != nil {
				return err
			}

			sum, err := a.reports(store).Summary(cmd.Context(), uid, month, year)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(a.username, sum))
			return nil
		},
	}
	summary.Flags().StringVar(&month, "month", "", "Month filter, YYYY-MM (wins over --year)")
	summary.Flags().StringVar(&year, "year", "", "Year filter, YYYY")

	var seriesYear string
	monthly := &cobra.Command{
		Use:   "monthly",
		Short: "Per-month totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			uid, err := a.userID(cmd.Context(), store)
			if err != nil {
				return err
			}

			series, err := a.reports(store).MonthlySeries(cmd.Context(), uid, seriesYear)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMonthly(series))
			return nil
		},
	}
	monthly.Flags().StringVar(&seriesYear, "year", "", "Restrict to one year, YYYY")

	budget := &cobra.Command{
		Use:   "budget",
		Short: "Budget against actual spend over the last six months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			uid, err := a.userID(cmd.Context(), store)
			if err != nil {
				return err
			}

			rows, err := a.reports(store).BudgetVsActual(cmd.Context(), uid)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderBudget(rows))
			return nil
		},
	}

	reportCmd.AddCommand(summary, monthly, budget)
	return reportCmd
}

func (a *app) reports(ledger reporting.Ledger) *reporting.Service {
	return reporting.NewService(ledger, reporting.WithWindowMode(a.cfg.WindowMode()))
}

func renderSummary(username string, sum reporting.Summary) string {
	rows := [][]string{
		{"Expenses", fmt.Sprint(len(sum.Expenses))},
		{"Total", sum.Total.String()},
	}
	if sum.Budget != nil {
		rows = append(rows, []string{"Budget", sum.Budget.String()})
	}
	rows = append(rows,
		[]string{"---"},
		[]string{fmt.Sprintf("Year to date (%d)", sum.Year), sum.YearToDate.String()},
		[]string{"Monthly average", sum.MonthlyAverage.String()},
		[]string{"Ledger total", sum.LedgerTotal.String()},
	)

	out := renderTitle(fmt.Sprintf("%s  %s", username, sum.Period)) + "\n"
	out += table{headers: []string{"Metric", "Value"}, rows: rows}.render()

	if len(sum.Breakdown) == 0 {
		return out
	}
	breakdown := make([][]string, len(sum.Breakdown))
	for i, c := range sum.Breakdown {
		breakdown[i] = []string{c.Name, c.Amount.String()}
	}
	return out + table{title: "By category", headers: []string{"Category", "Amount"}, rows: breakdown}.render()
}

func renderMonthly(series []core.MonthTotal) string {
	if len(series) == 0 {
		return emptyNotice("expenses")
	}
	rows := make([][]string, len(series))
	for i, m := range series {
		rows[i] = []string{m.Month.String(), m.Total.String()}
	}
	return table{headers: []string{"Month", "Total"}, rows: rows}.render()
}

func renderBudget(rows []core.BudgetComparison) string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		remaining := core.Money{Cents: r.Budget.Cents - r.Actual.Cents}
		left := remaining.String()
		if remaining.Cents < 0 {
			left = overStyle.Render(left)
		}
		out[i] = []string{r.Month.String(), r.Budget.String(), r.Actual.String(), left}
	}
	return table{headers: []string{"Month", "Budget", "Actual", "Remaining"}, rows: out}.render()
}
