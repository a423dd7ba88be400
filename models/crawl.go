package models

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	// URL is the starting page. Required.
	URL string `json:"url" binding:"required,url"`

	// Mode selects what to extract: "links", "headings", "paragraphs",
	// "custom", or the menu numbers "1".."4". Required.
	Mode string `json:"mode" binding:"required"`

	// Tag and Class are used by the custom mode only.
	Tag   string `json:"tag,omitempty"`
	Class string `json:"class,omitempty"`

	// MaxPages bounds the number of pages fetched. 0 means the server's
	// page cap.
	MaxPages int `json:"max_pages,omitempty" binding:"omitempty,min=0,max=1000"`

	// Format selects the response body: "json" (default) or "csv".
	Format string `json:"format,omitempty" binding:"omitempty,oneof=json csv"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields. maxPages replaces a
// zero MaxPages when positive.
func (r *CrawlRequest) Defaults(maxPages int) {
	if r.MaxPages == 0 && maxPages > 0 {
		r.MaxPages = maxPages
	}
	if r.Format == "" {
		r.Format = "json"
	}
}

// CrawlResponse is the response for POST /api/v1/crawl and POST /api/v1/books.
type CrawlResponse struct {
	Success bool `json:"success"`

	// Pages is the number of pages fetched successfully.
	Pages int `json:"pages"`

	// Fields lists the record keys in column order.
	Fields []string `json:"fields"`

	Records []Record `json:"records"`
	Total   int      `json:"total"`

	// StopReason explains why the crawl ended: "no_next_page",
	// "fetch_failed", "max_pages", "policy_denied", "completed".
	StopReason string `json:"stop_reason,omitempty"`

	// LastError is the fetch failure that ended the crawl, if any.
	LastError *ErrorDetail `json:"last_error,omitempty"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// BooksRequest is the payload for POST /api/v1/books.
type BooksRequest struct {
	// Pages is the fixed number of listing pages to scrape. Default: 5.
	Pages int `json:"pages,omitempty" binding:"omitempty,min=1,max=50"`

	// Template overrides the page URL template; "{}" is replaced by the
	// page number.
	Template string `json:"template,omitempty"`

	Format string `json:"format,omitempty" binding:"omitempty,oneof=json csv"`
}

// Defaults applies default values to unset fields.
func (r *BooksRequest) Defaults(pages int, template string) {
	if r.Pages == 0 {
		r.Pages = pages
	}
	if r.Template == "" {
		r.Template = template
	}
	if r.Format == "" {
		r.Format = "json"
	}
}
