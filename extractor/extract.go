package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pagecrawl/models"
	"golang.org/x/net/html"
)

// Parse builds a document from raw HTML bytes.
func Parse(body []byte) (*goquery.Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Extract returns one record per element matching rule, in document order.
// Anchors yield their href verbatim; other elements yield trimmed text.
func Extract(doc *goquery.Document, rule Rule) []models.Record {
	var records []models.Record
	doc.FindMatcher(rule.sel).Each(func(_ int, s *goquery.Selection) {
		var value string
		if goquery.NodeName(s) == "a" {
			value, _ = s.Attr("href")
		} else {
			value = strings.TrimSpace(s.Text())
		}
		records = append(records, models.Record{models.FieldData: value})
	})
	return records
}

// NextPage looks at the first anchor whose text is exactly "Next" and
// resolves its href against pageURL. It reports false when that anchor has
// no usable href or points back at pageURL; later "Next" anchors are not
// considered.
func NextPage(doc *goquery.Document, pageURL string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	var anchor *goquery.Selection
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Text() == "Next" {
			anchor = s
			return false
		}
		return true
	})
	if anchor == nil {
		return "", false
	}

	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	resolved, err := base.Parse(strings.TrimSpace(href))
	if err != nil || !resolved.IsAbs() {
		return "", false
	}
	if withoutFragment(resolved) == withoutFragment(base) {
		return "", false
	}
	return resolved.String(), true
}

func withoutFragment(u *url.URL) string {
	cp := *u
	cp.Fragment = ""
	cp.RawFragment = ""
	return cp.String()
}
