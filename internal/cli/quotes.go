package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cauciones-alerts/internal/app"
)

var (
	quotesTenor int
	quotesCSV   string
	quotesPNG   string
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Print the current caución rate curve",
	RunE: func(cmd *cobra.Command, args []string) error {
		if quotesTenor < 0 {
			return errors.New("--tenor must be positive")
		}
		return getApp().Quotes(cmd.Context(), app.QuotesOptions{
			Tenor:   quotesTenor,
			CSVPath: quotesCSV,
			PNGPath: quotesPNG,
			Out:     cmd.OutOrStdout(),
		})
	},
}

func init() {
	quotesCmd.Flags().IntVar(&quotesTenor, "tenor", 0, "Only show this tenor in days")
	quotesCmd.Flags().StringVar(&quotesCSV, "csv", "", "Also write the curve to a CSV file")
	quotesCmd.Flags().StringVar(&quotesPNG, "png", "", "Also plot the curve to a PNG file")
}
