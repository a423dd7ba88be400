package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/pagecrawl/models"
)

// Mode is the closed set of things the site crawler can extract.
type Mode string

const (
	ModeLinks      Mode = "links"
	ModeHeadings   Mode = "headings"
	ModeParagraphs Mode = "paragraphs"
	ModeCustom     Mode = "custom"
)

// Modes lists every mode in menu order (1..4).
var Modes = []Mode{ModeLinks, ModeHeadings, ModeParagraphs, ModeCustom}

// ErrUnknownMode is wrapped by the error ParseMode returns for input that
// names no mode.
var ErrUnknownMode = errors.New("unknown extraction mode")

var tagName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// ParseMode accepts a mode name or its menu number ("1".."4").
func ParseMode(s string) (Mode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, m := range Modes {
		if v == string(m) || v == fmt.Sprint(i+1) {
			return m, nil
		}
	}
	return "", models.NewScrapeError(models.ErrCodeInvalidMode, fmt.Sprintf("invalid choice %q", s), ErrUnknownMode)
}

// Rule is a validated extraction configuration.
type Rule struct {
	Mode  Mode
	Tag   string
	Class string

	selector string
	sel      cascadia.Selector
}

// NewRule validates mode, tag and class. Tag is required for ModeCustom and
// ignored otherwise. Class is an optional space-separated class filter.
func NewRule(mode Mode, tag, class string) (Rule, error) {
	r := Rule{Mode: mode}

	switch mode {
	case ModeLinks:
		r.selector = "a"
	case ModeHeadings:
		r.selector = "h1, h2, h3, h4, h5, h6"
	case ModeParagraphs:
		r.selector = "p"
	case ModeCustom:
		tag = strings.TrimSpace(tag)
		if !tagName.MatchString(tag) {
			return Rule{}, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid tag name %q", tag), nil)
		}
		r.Tag = strings.ToLower(tag)
		r.Class = strings.Join(strings.Fields(class), " ")
		r.selector = r.Tag
		for _, c := range strings.Fields(class) {
			r.selector += classToken(c)
		}
	default:
		return Rule{}, models.NewScrapeError(models.ErrCodeInvalidMode, fmt.Sprintf("invalid mode %q", mode), ErrUnknownMode)
	}

	sel, err := cascadia.Compile(r.selector)
	if err != nil {
		return Rule{}, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid class filter %q", class), err)
	}
	r.sel = sel
	return r, nil
}

// classToken matches one whitespace-separated token of the class attribute.
// Tokens such as "1col", "w-1/2" or "md:flex" are valid classes but not CSS
// identifiers, so the attribute form is used instead of ".name".
func classToken(c string) string {
	return `[class~="` + classEscaper.Replace(c) + `"]`
}

var classEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ParseRule combines ParseMode and NewRule.
func ParseRule(mode, tag, class string) (Rule, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return Rule{}, err
	}
	return NewRule(m, tag, class)
}

// Selector returns the CSS selector the rule matches with.
func (r Rule) Selector() string {
	return r.selector
}

func (r Rule) String() string {
	if r.Mode != ModeCustom {
		return string(r.Mode)
	}
	if r.Class == "" {
		return fmt.Sprintf("custom(%s)", r.Tag)
	}
	return fmt.Sprintf("custom(%s.%s)", r.Tag, r.Class)
}
