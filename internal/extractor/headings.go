package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pitchside/harvester/internal/harvest"
)

// DefaultHeadingLimit bounds how many heading snippets the baseline
// extractor collects.
const DefaultHeadingLimit = 10

// NoTitle is used when a page carries no <title> element.
const NoTitle = "No title"

// Headings is the baseline extractor: page title plus up to limit
// heading-level snippets collected as "articles".
type Headings struct {
	site  string
	limit int
}

// NewHeadings builds the baseline extractor. An empty site tags records with
// the page hostname left to the caller; a non-positive limit falls back to
// DefaultHeadingLimit.
func NewHeadings(site string, limit int) *Headings {
	if limit <= 0 {
		limit = DefaultHeadingLimit
	}
	return &Headings{site: site, limit: limit}
}

// Extract implements harvest.Extractor.
func (h *Headings) Extract(payload []byte, prov harvest.Provenance) (harvest.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return harvest.Record{}, err
	}
	return harvest.Record{
		Site:  h.site,
		Title: pageTitle(doc),
		Sections: map[string][]string{
			"articles": collectText(doc, "h1, h2, h3", h.limit),
		},
		Provenance: prov,
	}, nil
}

func parse(payload []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return NoTitle
	}
	return title
}

// collectText gathers trimmed, non-empty text from up to limit matches.
func collectText(doc *goquery.Document, selector string, limit int) []string {
	out := []string{}
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(out) >= limit {
			return false
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
		return true
	})
	return out
}
