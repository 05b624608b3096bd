package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pitchside/harvester/internal/harvest"
)

// Per-site extractors for the configured soccer sources. Each one reuses the
// baseline title/heading helpers and adds the site's own labeled sections.

// BBCSport extracts promo headings and section headlines from BBC Sport.
type BBCSport struct{}

// NewBBCSport builds the BBC Sport extractor.
func NewBBCSport() *BBCSport { return &BBCSport{} }

// Extract implements harvest.Extractor.
func (e *BBCSport) Extract(payload []byte, prov harvest.Provenance) (harvest.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return harvest.Record{}, err
	}
	articles := collectText(doc, "h3.gs-c-promo-heading__title", DefaultHeadingLimit)
	if len(articles) == 0 {
		articles = collectText(doc, "h3", DefaultHeadingLimit)
	}
	return harvest.Record{
		Site:  "BBC Sport",
		Title: pageTitle(doc),
		Sections: map[string][]string{
			"articles":  articles,
			"headlines": collectText(doc, "h2", 5),
		},
		Provenance: prov,
	}, nil
}

// SkySports extracts news items from Sky Sports.
type SkySports struct{}

// NewSkySports builds the Sky Sports extractor.
func NewSkySports() *SkySports { return &SkySports{} }

// Extract implements harvest.Extractor.
func (e *SkySports) Extract(payload []byte, prov harvest.Provenance) (harvest.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return harvest.Record{}, err
	}
	return harvest.Record{
		Site:  "Sky Sports",
		Title: pageTitle(doc),
		Sections: map[string][]string{
			"news": collectText(doc, "h3", DefaultHeadingLimit),
		},
		Provenance: prov,
	}, nil
}

// ESPN extracts top headlines from the ESPN soccer page.
type ESPN struct{}

// NewESPN builds the ESPN extractor.
func NewESPN() *ESPN { return &ESPN{} }

// Extract implements harvest.Extractor.
func (e *ESPN) Extract(payload []byte, prov harvest.Provenance) (harvest.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return harvest.Record{}, err
	}
	return harvest.Record{
		Site:  "ESPN",
		Title: pageTitle(doc),
		Sections: map[string][]string{
			"headlines": collectText(doc, "h1", 5),
		},
		Provenance: prov,
	}, nil
}

// Goal extracts article headings from Goal.com.
type Goal struct{}

// NewGoal builds the Goal.com extractor.
func NewGoal() *Goal { return &Goal{} }

// Extract implements harvest.Extractor.
func (e *Goal) Extract(payload []byte, prov harvest.Provenance) (harvest.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return harvest.Record{}, err
	}
	return harvest.Record{
		Site:  "Goal.com",
		Title: pageTitle(doc),
		Sections: map[string][]string{
			"articles": collectText(doc, "h3", DefaultHeadingLimit),
		},
		Provenance: prov,
	}, nil
}

// Transfermarkt extracts transfer links and player table rows. Player rows
// feed the relational persistence path.
type Transfermarkt struct{}

// NewTransfermarkt builds the Transfermarkt extractor.
func NewTransfermarkt() *Transfermarkt { return &Transfermarkt{} }

// Extract implements harvest.Extractor.
func (e *Transfermarkt) Extract(payload []byte, prov harvest.Provenance) (harvest.Record, error) {
	doc, err := parse(payload)
	if err != nil {
		return harvest.Record{}, err
	}

	transfers := []string{}
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(transfers) >= DefaultHeadingLimit {
			return false
		}
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if text != "" && strings.Contains(strings.ToLower(href), "player") {
			transfers = append(transfers, text)
		}
		return true
	})

	return harvest.Record{
		Site:  "Transfermarkt",
		Title: pageTitle(doc),
		Sections: map[string][]string{
			"transfers": transfers,
		},
		Players:    playerRows(doc),
		Provenance: prov,
	}, nil
}

// playerRows parses three-column player tables (name, age, club) into record
// tuples. Rows with unparseable ages come back with Age 0 and are dropped
// later by validation, not here.
func playerRows(doc *goquery.Document) []harvest.PlayerRow {
	rows := []harvest.PlayerRow{}
	doc.Find("table.items tr, table.players tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		age, _ := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
		rows = append(rows, harvest.PlayerRow{
			Name: strings.TrimSpace(cells.Eq(0).Text()),
			Age:  age,
			Club: strings.TrimSpace(cells.Eq(2).Text()),
		})
	})
	return rows
}
