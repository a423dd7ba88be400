package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/robots"
)

// GetRobots returns a handler for GET /api/v1/robots?url=.
// It reports the gate decision for the URL without crawling it.
func GetRobots(g *robots.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawURL := c.Query("url")
		if rawURL == "" {
			badRequest(c, "query parameter url is required")
			return
		}

		allowed, policy, err := g.Check(c.Request.Context(), rawURL)
		if err != nil {
			respondRobotsError(c, rawURL, err)
			return
		}

		u, _ := url.Parse(rawURL)
		disallowed := policy.Disallowed()
		if disallowed == nil {
			disallowed = []string{}
		}
		c.JSON(http.StatusOK, models.RobotsResponse{
			Success:    true,
			URL:        rawURL,
			Origin:     robots.Origin(u),
			Path:       robots.Path(u),
			Allowed:    allowed,
			Fetched:    policy.Fetched(),
			Disallowed: disallowed,
		})
	}
}

func respondRobotsError(c *gin.Context, rawURL string, err error) {
	detail := detailOf(err)
	status := http.StatusInternalServerError
	if detail.Code == models.ErrCodeInvalidInput {
		status = http.StatusBadRequest
	}
	c.JSON(status, models.RobotsResponse{Success: false, URL: rawURL, Error: detail})
}
