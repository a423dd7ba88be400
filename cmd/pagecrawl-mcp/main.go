package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("PAGECRAWL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGECRAWL_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PAGECRAWL_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagecrawl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	crawlSiteTool := mcp.NewTool("crawl_site",
		mcp.WithDescription("Extract links, headings, paragraphs or custom elements from a page and every page reached by following its \"Next\" links. Checks robots.txt for the starting URL first."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The starting URL"),
		),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("What to extract: 'links' (href of every anchor), 'headings' (h1-h6 text), 'paragraphs' (p text) or 'custom' (tag and optional class)"),
			mcp.Enum("links", "headings", "paragraphs", "custom"),
		),
		mcp.WithString("tag",
			mcp.Description("Element tag for the custom mode, e.g. 'div'"),
		),
		mcp.WithString("class",
			mcp.Description("Optional class filter for the custom mode"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Stop after this many pages (default: follow Next links until none remain)"),
		),
	)
	s.AddTool(crawlSiteTool, handleCrawlSite(apiURL, apiKey))

	scrapeBooksTool := mcp.NewTool("scrape_books",
		mcp.WithDescription("Scrape a fixed number of book listing pages and return name, price and rating for every book."),
		mcp.WithNumber("pages",
			mcp.Description("Number of listing pages (default: 5, max: 50)"),
		),
		mcp.WithString("template",
			mcp.Description("Page URL template where {} is the page number (default: books.toscrape.com catalogue)"),
		),
	)
	s.AddTool(scrapeBooksTool, handleScrapeBooks(apiURL, apiKey))

	checkRobotsTool := mcp.NewTool("check_robots",
		mcp.WithDescription("Report whether the site's robots.txt allows crawling a URL, and which path prefixes it disallows."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to check"),
		),
	)
	s.AddTool(checkRobotsTool, handleCheckRobots(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
