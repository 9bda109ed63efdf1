package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/csvcodec"
	"finboard/internal/log"
)

// criteriaFlags are the filtered-view flags shared by export and summary.
type criteriaFlags struct {
	search string
	kind   string
	mode   string
	value  string
	from   string
	to     string
}

func (f *criteriaFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.search, "search", "q", "", "case-insensitive text search over title, category and description")
	fs.StringVar(&f.kind, "type", "", "income or expense (default all)")
	fs.StringVar(&f.mode, "mode", "all", "date filter: all, month, year or range")
	fs.StringVar(&f.value, "value", "", "month (YYYY-MM) or year (YYYY) for the date filter")
	fs.StringVar(&f.from, "from", "", "range start date (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "range end date (YYYY-MM-DD)")
}

func (f *criteriaFlags) criteria() (analytics.Criteria, error) {
	df, err := analytics.ParseDateFilter(f.mode, f.value, f.from, f.to)
	if err != nil {
		return analytics.Criteria{}, err
	}
	return analytics.Criteria{
		Search: f.search,
		Type:   analytics.ParseTypeFilter(f.kind),
		Date:   df,
	}, nil
}

// createOutput returns stdout for "" or "-", else a new file.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newImportCmd(env *cliEnv) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import reads a CSV file with a header row (title, amount, type, category,
description, date, paymentMethod, recipient) or the same columns by position.
Blank or malformed fields are defaulted; rows with fewer than four fields are
skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if dryRun {
				res, err := csvcodec.Decode(f)
				if err != nil {
					return err
				}
				printWarnings(env.logger, res.Warnings)
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows: %d valid, %d skipped (dry run, nothing stored)\n",
					res.Rows, len(res.Transactions), res.Rejected)
				return nil
			}

			app, release, err := env.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := app.Transactions.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			printWarnings(env.logger, report.Warnings)
			env.logger.Info("Import finished",
				log.FieldImported, report.Imported,
				log.FieldRejected, report.Rejected)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions (%d rows, %d skipped)\n",
				report.Imported, report.Rows, report.Rejected)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decode and validate the file without storing anything")
	return cmd
}

func printWarnings(logger *log.Logger, warnings []core.Warning) {
	for _, w := range warnings {
		logger.Debug("Field defaulted", "line", w.Line, "field", w.Field, "code", w.Code, "value", w.Value)
	}
}

func newExportCmd(env *cliEnv) *cobra.Command {
	var (
		cf       criteriaFlags
		output   string
		currency string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered transactions as a CSV report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.criteria()
			if err != nil {
				return err
			}
			app, release, err := env.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := app.Dashboard.ExportReport(cmd.Context(), c, csvcodec.ReportOptions{CurrencySymbol: currency})
			if err != nil {
				return err
			}

			w, closeOut, err := createOutput(cmd, output)
			if err != nil {
				return fmt.Errorf("%w: %w", csvcodec.ErrExport, err)
			}
			if err := csvcodec.Encode(w, report); err != nil {
				closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return fmt.Errorf("%w: %w", csvcodec.ErrExport, err)
			}
			env.logger.Info("Export finished",
				"transactions", len(report.Transactions),
				"output", output)
			return nil
		},
	}
	cf.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&currency, "currency", csvcodec.DefaultCurrencySymbol, "currency symbol for the summary sections")
	return cmd
}

func newSummaryCmd(env *cliEnv) *cobra.Command {
	var (
		cf       criteriaFlags
		series   string
		top      int
		asJSON   bool
		currency string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals, top expense categories and the monthly series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.criteria()
			if err != nil {
				return err
			}
			app, release, err := env.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			ov, err := app.Dashboard.Overview(cmd.Context(), c, analytics.ParseSeriesMode(series))
			if err != nil {
				return err
			}
			ov.Categories = analytics.Top(ov.Categories, top)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ov)
			}
			return printOverview(cmd.OutOrStdout(), ov, currency)
		},
	}
	cf.register(cmd.Flags())
	cmd.Flags().StringVar(&series, "series", "rolling", "monthly series: rolling (last 12 months) or calendar")
	cmd.Flags().IntVar(&top, "top", 5, "number of expense categories to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the overview as JSON")
	cmd.Flags().StringVar(&currency, "currency", csvcodec.DefaultCurrencySymbol, "currency symbol")
	return cmd
}

func printOverview(out io.Writer, ov analytics.Overview, currency string) error {
	money := func(m core.Money) string { return currency + m.String() }
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Date range\t%s\n", ov.DateRange)
	fmt.Fprintf(tw, "Transactions\t%d\n", ov.Summary.TransactionCount)
	fmt.Fprintf(tw, "Income\t%s\n", money(ov.Summary.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", money(ov.Summary.TotalExpenses))
	fmt.Fprintf(tw, "Balance\t%s\n", money(ov.Summary.Balance))

	if len(ov.Categories) > 0 {
		fmt.Fprintln(tw, "\nTop expenses\t\t")
		for _, c := range ov.Categories {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, money(c.Amount), c.Count)
		}
	}

	fmt.Fprintln(tw, "\nMonth\tIncome\tExpenses")
	for _, b := range ov.Monthly {
		fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\n", b.Year, b.Month, money(b.Income), money(b.Expenses))
	}
	return tw.Flush()
}

func newTemplateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a sample import CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, closeOut, err := createOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := csvcodec.WriteTemplate(w); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
