package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/extractor"
)

var menuLabels = map[extractor.Mode]string{
	extractor.ModeLinks:      "Links",
	extractor.ModeHeadings:   "Headings",
	extractor.ModeParagraphs: "Paragraphs",
	extractor.ModeCustom:     "Custom element (tag and class)",
}

// promptJob asks for whatever flags and the job file left empty.
// An invalid menu choice is returned as an error; nothing is re-asked.
func promptJob(in *bufio.Reader, out io.Writer, job *config.Job) error {
	var err error
	if job.URL == "" {
		if job.URL, err = ask(in, out, "Enter the URL to scrape: "); err != nil {
			return err
		}
	}

	if job.Mode == "" {
		fmt.Fprintln(out, "What would you like to scrape?")
		for i, m := range extractor.Modes {
			fmt.Fprintf(out, "%d. %s\n", i+1, menuLabels[m])
		}
		if job.Mode, err = ask(in, out, "Enter your choice (1-4): "); err != nil {
			return err
		}
	}

	mode, err := extractor.ParseMode(job.Mode)
	if err != nil {
		return err
	}
	if mode != extractor.ModeCustom || job.Tag != "" {
		return nil
	}

	if job.Tag, err = ask(in, out, "Enter the HTML tag to scrape (e.g. div, span): "); err != nil {
		return err
	}
	if job.Class == "" {
		job.Class, err = ask(in, out, "Enter the class name (optional, press Enter to skip): ")
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
	return err
}

// ask prints prompt and reads one trimmed line.
func ask(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
