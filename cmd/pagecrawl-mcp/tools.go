package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// crawlResponse mirrors the crawl and books API responses.
type crawlResponse struct {
	Success    bool                `json:"success"`
	Pages      int                 `json:"pages"`
	Fields     []string            `json:"fields"`
	Records    []map[string]string `json:"records"`
	Total      int                 `json:"total"`
	StopReason string              `json:"stop_reason"`
	LastError  *errorDetail        `json:"last_error"`
	Error      *errorDetail        `json:"error"`
}

// robotsResponse mirrors the robots API response.
type robotsResponse struct {
	Success    bool         `json:"success"`
	URL        string       `json:"url"`
	Allowed    bool         `json:"allowed"`
	Fetched    bool         `json:"fetched"`
	Disallowed []string     `json:"disallowed"`
	Error      *errorDetail `json:"error"`
}

// apiPost sends a POST request to the pagecrawl API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return apiDo(client, req, apiKey)
}

// apiGet sends a GET request to the pagecrawl API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return apiDo(client, req, apiKey)
}

func apiDo(client *http.Client, req *http.Request, apiKey string) ([]byte, error) {
	req.Header.Set("X-API-Key", apiKey)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func errorResult(fallback string, e *errorDetail) *mcp.CallToolResult {
	if e != nil {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	}
	return mcp.NewToolResultError(fallback)
}

// formatRecords renders records as a tab-separated table under a summary line.
func formatRecords(resp *crawlResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d records from %d pages (stopped: %s)\n", resp.Total, resp.Pages, resp.StopReason))
	if resp.LastError != nil {
		sb.WriteString(fmt.Sprintf("Last error: [%s] %s\n", resp.LastError.Code, resp.LastError.Message))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Join(resp.Fields, "\t"))
	sb.WriteString("\n")
	for _, r := range resp.Records {
		row := make([]string, len(resp.Fields))
		for i, f := range resp.Fields {
			row[i] = r[f]
		}
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func handleCrawlSite(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		mode, err := request.RequireString("mode")
		if err != nil {
			return mcp.NewToolResultError("mode is required"), nil
		}

		payload := map[string]any{
			"url":  pageURL,
			"mode": mode,
		}
		if tag := request.GetString("tag", ""); tag != "" {
			payload["tag"] = tag
		}
		if class := request.GetString("class", ""); class != "" {
			payload["class"] = class
		}
		if maxPages := request.GetInt("max_pages", 0); maxPages > 0 {
			payload["max_pages"] = maxPages
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/crawl", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("crawl request failed: %v", err)), nil
		}

		var resp crawlResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl response: %v", err)), nil
		}
		if !resp.Success {
			return errorResult("crawl failed", resp.Error), nil
		}
		return mcp.NewToolResultText(formatRecords(&resp)), nil
	}
}

func handleScrapeBooks(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := map[string]any{}
		if pages := request.GetInt("pages", 0); pages > 0 {
			payload["pages"] = pages
		}
		if template := request.GetString("template", ""); template != "" {
			payload["template"] = template
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/books", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("books request failed: %v", err)), nil
		}

		var resp crawlResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse books response: %v", err)), nil
		}
		if !resp.Success {
			return errorResult("book scrape failed", resp.Error), nil
		}
		return mcp.NewToolResultText(formatRecords(&resp)), nil
	}
}

func handleCheckRobots(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/robots?url="+url.QueryEscape(pageURL))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("robots request failed: %v", err)), nil
		}

		var resp robotsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse robots response: %v", err)), nil
		}
		if !resp.Success {
			return errorResult("robots check failed", resp.Error), nil
		}

		var sb strings.Builder
		verdict := "disallowed"
		if resp.Allowed {
			verdict = "allowed"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", resp.URL, verdict))
		if !resp.Fetched {
			sb.WriteString("robots.txt could not be retrieved; every path is allowed.\n")
		}
		for _, p := range resp.Disallowed {
			sb.WriteString("Disallow: " + p + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
