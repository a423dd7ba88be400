package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/use-agent/pagecrawl/crawler"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/output"
)

var (
	booksPages    *int
	booksTemplate *string
	booksOutput   *string
)

func init() {
	booksPages = booksCmd.Flags().Int("pages", cfg.Books.Pages, "Number of listing pages to scrape.")
	booksTemplate = booksCmd.Flags().String("template", cfg.Books.Template, "Page URL template; {} is replaced with the page number.")
	booksOutput = booksCmd.Flags().StringP("output", "o", cfg.Books.Output, "CSV file to write.")
	rootCmd.AddCommand(booksCmd)
}

var booksCmd = &cobra.Command{
	Use:   "books [--pages 5] [--template <url>] [--output products.csv]",
	Short: "Scrapes book listing pages into a CSV of name, price and rating.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := crawler.BookOptionsFromConfig(cfg.Books)
		opts.Pages = *booksPages
		opts.Template = *booksTemplate
		opts.Reporter = crawler.Reporters{
			crawler.NewConsoleReporter(cmd.OutOrStdout()),
			crawler.NewLogReporter(nil),
		}

		res, err := crawler.NewBookScraper(newFetcher(), opts).Run(cmd.Context())
		if err != nil {
			return err
		}

		if err := output.WriteCSV(*booksOutput, models.BookFields, res.Records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Data saved to %s (%d records)\n", *booksOutput, len(res.Records))
		return nil
	},
}
