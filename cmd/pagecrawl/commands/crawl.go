package commands

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/crawler"
	"github.com/use-agent/pagecrawl/output"
	"github.com/use-agent/pagecrawl/robots"
)

var (
	crawlURL      *string
	crawlMode     *string
	crawlTag      *string
	crawlClass    *string
	crawlOutput   *string
	crawlMaxPages *int
	crawlJobFile  *string
)

func init() {
	f := crawlCmd.Flags()
	crawlURL = f.String("url", "", "Starting URL. Prompted for when empty.")
	crawlMode = f.String("mode", "", "links, headings, paragraphs, custom or 1-4. Prompted for when empty.")
	crawlTag = f.String("tag", "", "Element tag for the custom mode.")
	crawlClass = f.String("class", "", "Optional class filter for the custom mode.")
	crawlOutput = f.StringP("output", "o", cfg.Crawl.Output, "CSV file to write.")
	crawlMaxPages = f.Int("max-pages", cfg.Crawl.MaxPages, "Stop after this many pages; 0 follows Next links until none remain.")
	crawlJobFile = f.String("job", "", "JSON5 job file; <name>.local.<ext> overrides it.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--url <url>] [--mode <mode>] [--job job.json5]",
	Short: "Extracts elements from a page and every page reached through its Next links.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := crawlJob(cmd)
		if err != nil {
			return err
		}
		if err := promptJob(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), &job); err != nil {
			return err
		}

		cj, err := crawler.JobFromConfig(job)
		if err != nil {
			return err
		}
		slog.Debug("starting crawl", "url", cj.URL, "rule", cj.Rule.String(), "max_pages", cj.MaxPages)

		f := newFetcher()
		opts := crawler.Options{
			Timeout:      cfg.Fetch.Timeout,
			RecheckPages: cfg.Robots.RecheckPages,
			Reporter: crawler.Reporters{
				crawler.NewConsoleReporter(cmd.OutOrStdout()),
				crawler.NewLogReporter(nil),
			},
		}
		if cfg.Robots.Enabled {
			gopts, err := robots.GateOptionsFromConfig(cfg.Robots)
			if err != nil {
				return err
			}
			opts.Gate = robots.NewGate(f, gopts)
		}

		res, err := crawler.New(f, opts).Run(cmd.Context(), cj)
		if errors.Is(err, crawler.ErrPolicyDenied) {
			fmt.Fprintf(cmd.OutOrStdout(), "Scraping is not allowed for %s by robots.txt\n", cj.URL)
			return nil
		}
		if err != nil {
			return err
		}

		if len(res.Records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No data found.")
			return nil
		}
		if err := output.WriteCSV(job.Output, res.Fields, res.Records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Data saved to %s (%d records)\n", job.Output, len(res.Records))
		return nil
	},
}

// crawlJob merges the job file, if any, with the flags that were set.
func crawlJob(cmd *cobra.Command) (config.Job, error) {
	var job config.Job
	if *crawlJobFile != "" {
		var err error
		if job, err = config.ReadJob(*crawlJobFile); err != nil {
			return job, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		job.URL = *crawlURL
	}
	if flags.Changed("mode") {
		job.Mode = *crawlMode
	}
	if flags.Changed("tag") {
		job.Tag = *crawlTag
	}
	if flags.Changed("class") {
		job.Class = *crawlClass
	}
	if flags.Changed("output") || job.Output == "" {
		job.Output = *crawlOutput
	}
	if flags.Changed("max-pages") || job.MaxPages == 0 {
		job.MaxPages = *crawlMaxPages
	}
	return job, nil
}
