package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"cauciones-alerts/internal/caucion"
	"cauciones-alerts/internal/checker"
)

// QuotesOptions control the quotes listing.
type QuotesOptions struct {
	// Tenor restricts the output to one tenor when positive.
	Tenor   int
	CSVPath string
	PNGPath string
	Out     io.Writer
}

// QuoteRow is one printable line of the rate curve.
type QuoteRow struct {
	Tenor    int
	Lender   *decimal.Decimal
	Borrower *decimal.Decimal
}

// Quotes fetches the current cauciones and prints them as a table.
func (a *App) Quotes(ctx context.Context, opts QuotesOptions) error {
	if err := a.Config.RequireIOL(); err != nil {
		return err
	}

	client := a.newQuoteClient(a.Logger)

	var set caucion.Set
	if opts.Tenor > 0 {
		quote, ok := client.Quote(ctx, opts.Tenor)
		if !ok {
			return fmt.Errorf("no caución quoted for %d days", opts.Tenor)
		}
		set = caucion.Set{opts.Tenor: quote}
	} else {
		quotes := client.Quotes(ctx)
		if len(quotes) == 0 {
			return checker.ErrNoQuotes
		}
		set = caucion.IndexByTenor(quotes)
	}

	rows := quoteRows(set)
	a.Logger.Info().Int("tenors", len(rows)).Msg("fetched caución curve")

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	renderQuoteTable(out, rows)

	if opts.CSVPath != "" {
		if err := writeQuotesCSV(opts.CSVPath, rows); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeQuotesPNG(opts.PNGPath, rows); err != nil {
			return err
		}
	}
	return nil
}

func quoteRows(set caucion.Set) []QuoteRow {
	rows := make([]QuoteRow, 0, len(set))
	for _, tenor := range set.Tenors() {
		quote := set[tenor]
		row := QuoteRow{Tenor: tenor}
		if rate, ok := quote.Rate(caucion.SideLender); ok {
			row.Lender = &rate
		}
		if rate, ok := quote.Rate(caucion.SideBorrower); ok {
			row.Borrower = &rate
		}
		rows = append(rows, row)
	}
	return rows
}

func renderQuoteTable(out io.Writer, rows []QuoteRow) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Plazo", "Colocadora %", "Tomadora %"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range rows {
		table.Append([]string{
			strconv.Itoa(row.Tenor) + "d",
			formatRate(row.Lender),
			formatRate(row.Borrower),
		})
	}
	table.Render()
}

func formatRate(rate *decimal.Decimal) string {
	if rate == nil {
		return "-"
	}
	return rate.StringFixed(2)
}

func writeQuotesCSV(path string, rows []QuoteRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"tenor_days", "lender_rate", "borrower_rate"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{strconv.Itoa(row.Tenor), csvRate(row.Lender), csvRate(row.Borrower)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvRate(rate *decimal.Decimal) string {
	if rate == nil {
		return ""
	}
	return rate.String()
}

func writeQuotesPNG(path string, rows []QuoteRow) error {
	var series []chart.Series
	lender := curve("Colocadora", rows, func(r QuoteRow) *decimal.Decimal { return r.Lender })
	borrower := curve("Tomadora", rows, func(r QuoteRow) *decimal.Decimal { return r.Borrower })
	for _, s := range []chart.ContinuousSeries{lender, borrower} {
		if len(s.XValues) >= 2 {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return errors.New("at least two tenors with rates are needed to plot the curve")
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Plazo (días)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		YAxis: chart.YAxis{
			Name: "TNA (%)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func curve(name string, rows []QuoteRow, pick func(QuoteRow) *decimal.Decimal) chart.ContinuousSeries {
	s := chart.ContinuousSeries{Name: name}
	for _, row := range rows {
		rate := pick(row)
		if rate == nil {
			continue
		}
		s.XValues = append(s.XValues, float64(row.Tenor))
		s.YValues = append(s.YValues, rate.InexactFloat64())
	}
	return s
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
