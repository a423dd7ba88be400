package models

// RobotsResponse is the response for GET /api/v1/robots.
type RobotsResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Origin  string `json:"origin"`
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`

	// Fetched is false when robots.txt could not be retrieved and the
	// gate failed open.
	Fetched bool `json:"fetched"`

	// Disallowed lists the prefixes that apply under the active scope.
	Disallowed []string `json:"disallowed"`

	Error *ErrorDetail `json:"error,omitempty"`
}
