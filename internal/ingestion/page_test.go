package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-validator/internal/fetch"
)

const greenhousePage = `<html lang="en">
<head>
	<title>Senior Engineer at Acme</title>
	<meta name="description" content="Join Acme as a Senior Engineer">
	<meta property="article:published_time" content="2024-03-01T10:00:00Z">
	<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"Organization","name":"Acme"},{"@type":"JobPosting","title":"Senior Engineer","hiringOrganization":{"@type":"Organization","name":"Acme"},"validThrough":"2099-01-01"}]}</script>
	<script>window.tracking = true;</script>
</head>
<body>
	<nav>Jobs home</nav>
	<div class="job__description body">
		<h1>Senior Engineer</h1>
		<p>We are hiring.</p>
		<ul><li>5 years of Go</li></ul>
	</div>
	<div id="application-form"><form><input type="file" name="resume"></form></div>
	<button onclick="apply()">Apply</button>
</body></html>`

func newTestLoader() *Loader {
	opts := fetch.DefaultOptions()
	opts.AllowPrivate = true
	opts.Timeout = 2 * time.Second
	return NewLoader(LoaderConfig{Fetch: opts}, nil)
}

func TestLoader_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(greenhousePage))
	}))
	defer server.Close()

	page, err := newTestLoader().Load(context.Background(), server.URL+"/acme/jobs/123", fetch.PlatformGreenhouse)
	require.NoError(t, err)

	assert.Contains(t, page.Text, "Senior Engineer")
	assert.Contains(t, page.Text, "5 years of Go")
	assert.NotContains(t, page.Text, "Jobs home")
	assert.NotEmpty(t, page.ContentHash)
	assert.Equal(t, "Senior Engineer at Acme", page.Meta.Title)
	assert.Equal(t, 2024, page.Meta.PublishedAt.Year())

	// sanitized document keeps forms but drops scripts and handlers
	assert.Equal(t, 0, page.Doc.Find("script").Length())
	assert.Equal(t, 1, page.Doc.Find("input[type='file']").Length())
	_, hasHandler := page.Doc.Find("button").Attr("onclick")
	assert.False(t, hasHandler)

	jp := FindJobPosting(page.JSONLD)
	require.NotNil(t, jp)
	assert.Equal(t, "Acme", StringField(jp, "hiringOrganization"))

	content := page.Content()
	assert.Equal(t, "/acme/jobs/123", content.Path)
	assert.Equal(t, len(page.Text), content.ContentLength)
	assert.Equal(t, "greenhouse", content.Platform)
}

func TestLoader_Load_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestLoader().Load(context.Background(), server.URL, fetch.PlatformUnknown)
	require.Error(t, err)

	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
}

func TestLoader_ContentHashStable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(greenhousePage))
	}))
	defer server.Close()

	loader := newTestLoader()
	a, err := loader.Load(context.Background(), server.URL, fetch.PlatformGreenhouse)
	require.NoError(t, err)
	b, err := loader.Load(context.Background(), server.URL, fetch.PlatformGreenhouse)
	require.NoError(t, err)
	assert.Equal(t, a.ContentHash, b.ContentHash)
}

func TestReadMetadata_TimeElementFallback(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><head><meta property="og:type" content="article"></head><body><time datetime="2023-05-04">May 4</time></body></html>`))
	require.NoError(t, err)

	m := ReadMetadata(doc)
	assert.Equal(t, "article", m.OGType)
	assert.Equal(t, time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC), m.PublishedAt)
}

func TestParseDate(t *testing.T) {
	assert.False(t, ParseDate("2024-01-02").IsZero())
	assert.False(t, ParseDate("Mon, 02 Jan 2006 15:04:05 GMT").IsZero())
	assert.False(t, ParseDate("March 5, 2024").IsZero())
	assert.True(t, ParseDate("yesterday").IsZero())
	assert.True(t, ParseDate("").IsZero())
}

func TestFindJobPosting(t *testing.T) {
	blocks := ExtractJSONLD(`<script type="application/ld+json">[{"@type":["Thing","JobPosting"],"title":"X"}]</script>
		<script type="application/ld+json">{not json}</script>`)
	require.Len(t, blocks, 1)
	jp := FindJobPosting(blocks)
	require.NotNil(t, jp)
	assert.Equal(t, "X", StringField(jp, "title"))

	assert.Nil(t, FindJobPosting(ExtractJSONLD(`<script type="application/ld+json">{"@type":"Article"}</script>`)))
}

func TestNewPage_WithoutNetwork(t *testing.T) {
	result := &fetch.Result{
		URL:        "https://boards.greenhouse.io/acme/jobs/123",
		HTML:       greenhousePage,
		StatusCode: http.StatusOK,
	}
	page, err := NewPage(result.URL, result, fetch.PlatformGreenhouse, 0)
	require.NoError(t, err)
	assert.Equal(t, result.URL, page.FinalURL)
	assert.Contains(t, page.Text, "5 years of Go")
	assert.NotEmpty(t, page.ContentHash)
	assert.False(t, page.RenderedWithBrowser)
	assert.Equal(t, "boards.greenhouse.io", page.Content().Domain)
}
