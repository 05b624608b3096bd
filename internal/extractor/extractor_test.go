package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pitchside/harvester/internal/harvest"
)

var testProv = harvest.Provenance{
	StatusCode: 200,
	LatencyMs:  42,
	CapturedAt: time.Unix(1700000000, 0).UTC(),
}

func TestHeadings_EmptyPageYieldsNoTitleAndEmptyArticles(t *testing.T) {
	t.Parallel()

	ex := NewHeadings("example", DefaultHeadingLimit)
	rec, err := ex.Extract([]byte("<html><body><p>nothing here</p></body></html>"), testProv)
	require.NoError(t, err)

	require.Equal(t, NoTitle, rec.Title)
	require.Empty(t, rec.Sections["articles"])
	require.Equal(t, testProv, rec.Provenance)
}

func TestHeadings_CollectsTrimmedHeadingsUpToLimit(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>  Sports Day  </title></head><body>
		<h1>One</h1>
		<h2>  Two  </h2>
		<h3></h3>
		<h3>   </h3>
		<h3>Three</h3>
	</body></html>`

	ex := NewHeadings("example", DefaultHeadingLimit)
	rec, err := ex.Extract([]byte(html), testProv)
	require.NoError(t, err)

	require.Equal(t, "Sports Day", rec.Title)
	require.Equal(t, []string{"One", "Two", "Three"}, rec.Sections["articles"])
}

func TestHeadings_LimitBoundsCollection(t *testing.T) {
	t.Parallel()

	var html string
	for i := 0; i < 20; i++ {
		html += "<h2>heading</h2>"
	}
	ex := NewHeadings("example", 10)
	rec, err := ex.Extract([]byte(html), testProv)
	require.NoError(t, err)
	require.Len(t, rec.Sections["articles"], 10)
}

func TestBBCSport_PromoHeadingsAndHeadlines(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>BBC Sport - Football</title></head><body>
		<h3 class="gs-c-promo-heading__title">Late winner stuns City</h3>
		<h3 class="gs-c-promo-heading__title">Transfer window latest</h3>
		<h2>Premier League</h2>
		<h2>Championship</h2>
	</body></html>`

	rec, err := NewBBCSport().Extract([]byte(html), testProv)
	require.NoError(t, err)

	require.Equal(t, "BBC Sport", rec.Site)
	require.Equal(t, "BBC Sport - Football", rec.Title)
	require.Equal(t, []string{"Late winner stuns City", "Transfer window latest"}, rec.Sections["articles"])
	require.Equal(t, []string{"Premier League", "Championship"}, rec.Sections["headlines"])
}

func TestTransfermarkt_PlayerRowsAndTransfers(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Transfermarkt</title></head><body>
		<a href="/erling-haaland/profil/spieler/418560">Erling Haaland</a>
		<a href="/news/other">Not a player</a>
		<table class="items">
			<tr><th>Name</th><th>Age</th><th>Club</th></tr>
			<tr><td>Erling Haaland</td><td>23</td><td>Manchester City</td></tr>
			<tr><td>Jude Bellingham</td><td>21</td><td>Real Madrid</td></tr>
			<tr><td>Unknown Kid</td><td>n/a</td><td>Academy</td></tr>
		</table>
	</body></html>`

	rec, err := NewTransfermarkt().Extract([]byte(html), testProv)
	require.NoError(t, err)

	require.Equal(t, "Transfermarkt", rec.Site)
	require.Equal(t, []string{"Erling Haaland"}, rec.Sections["transfers"])
	require.Len(t, rec.Players, 3)
	require.Equal(t, harvest.PlayerRow{Name: "Erling Haaland", Age: 23, Club: "Manchester City"}, rec.Players[0])
	// Unparseable age survives extraction and is left to validation.
	require.Equal(t, 0, rec.Players[2].Age)
	require.Error(t, rec.Players[2].Validate())
}

func TestRegistry_LookupIsExactMatch(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, ok := r.Lookup("bbc_sport")
	require.True(t, ok)
	_, ok = r.Lookup("BBC_SPORT")
	require.False(t, ok)
	_, ok = r.Lookup("unknown")
	require.False(t, ok)
}

func TestRegistry_ValidateFlagsUnregisteredSource(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Validate([]harvest.Source{
		{ID: "bbc_sport", URL: "https://www.bbc.com/sport/football"},
		{ID: "mystery", URL: "https://example.com"},
	})
	require.Error(t, err)

	var cfgErr *harvest.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "mystery", cfgErr.SourceID)
}

func TestRegistry_RegisterBaseline(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterBaseline("my_blog")
	ex, ok := r.Lookup("my_blog")
	require.True(t, ok)

	rec, err := ex.Extract([]byte("<html><body><h1>Post</h1></body></html>"), testProv)
	require.NoError(t, err)
	require.Equal(t, "my_blog", rec.Site)
	require.Equal(t, []string{"Post"}, rec.Sections["articles"])
}
