package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/core/superscript"
)

const psalm1Page = `<!DOCTYPE html>
<html><head><title>Ps 1</title></head>
<body>
<div class="nav">1 navigation</div>
<div class="biblehtmlcontent verses">
  <div class="v">ERSTES BUCH</div>
  <div class="v"><span class="vn">1</span>Selig der Mensch, / der nicht im Rat der Frevler geht,<sup>1</sup></div>
  <div class="v"><span class="vn">2</span>sondern sein Gefallen hat an der Weisung des HERRN, /
     bei Tag und bei Nacht über seine Weisung nachsinnt.</div>
  <div class="v"><span class="vn">13a</span>Ich aber <br>bleibe.</div>
  <div class="v">3 alsbald [Sela]</div>
</div>
</body></html>`

func TestParse(t *testing.T) {
	got, err := Parse(1, strings.NewReader(psalm1Page))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []ir.RawVerse{
		{Number: "1", Text: "1Selig der Mensch, / der nicht im Rat der Frevler geht,1"},
		{Number: "2", Text: "2sondern sein Gefallen hat an der Weisung des HERRN, / bei Tag und bei Nacht über seine Weisung nachsinnt."},
		{Number: "13a", Text: "13aIch aber bleibe."},
		{Number: "3", Text: "3 alsbald [Sela]"},
	}
	if len(got) != len(want) {
		t.Fatalf("Parse() = %d verses, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("verse %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseMissingContainer(t *testing.T) {
	_, err := Parse(7, strings.NewReader(`<html><body><div class="verses">1 x</div></body></html>`))
	if !errors.Is(err, perrors.ErrFetch) {
		t.Fatalf("Parse() error = %v, want ErrFetch", err)
	}
	var fe *perrors.FetchError
	if !errors.As(err, &fe) || fe.Poem != 7 {
		t.Errorf("FetchError = %+v, want poem 7", fe)
	}
}

func TestParseNormalizesToNFC(t *testing.T) {
	// "u" followed by a combining diaeresis.
	page := "<div class=\"biblehtmlcontent verses\"><div class=\"v\">4 gru\u0308n</div></div>"
	got, err := Parse(1, strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(got) != 1 || got[0].Text != "4 gr\u00fcn" {
		t.Errorf("Parse() = %+v, want composed ü", got)
	}
}

func TestVerseNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"1Selig", "1"},
		{"12 Text", "12"},
		{"13aIch", "13a"},
		{"13b Und", "13b"},
		{"5alsbald", "5"},
		{"6bald", "6"},
		{"7a", "7a"},
		{"150", "150"},
		{"8cDer", "8"},
		{"9Äber", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := verseNumber(tt.text)
			if got != tt.want {
				t.Errorf("verseNumber(%q) = %q, want %q", tt.text, got, tt.want)
			}
			if _, err := superscript.Encode(got); err != nil {
				t.Errorf("verse number %q cannot be stamped: %v", got, err)
			}
		})
	}
}

type memCache struct {
	mu    sync.Mutex
	pages map[string][]byte
	gets  int
}

func (m *memCache) Get(_ context.Context, url string, _ time.Duration) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	b, ok := m.pages[url]
	return b, ok, nil
}

func (m *memCache) Put(_ context.Context, url string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = body
	return nil
}

func TestClientFetch(t *testing.T) {
	var hits atomic.Int32
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		userAgent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path != "/ot/Ps_1.html" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, psalm1Page)
	}))
	defer server.Close()

	cache := &memCache{pages: map[string][]byte{}}
	c := NewClient(Options{
		BaseURL: server.URL + "/ot/",
		Cache:   cache,
	})

	for i := 0; i < 2; i++ {
		verses, err := c.Fetch(context.Background(), 1)
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if len(verses) != 4 {
			t.Errorf("Fetch() = %d verses, want 4", len(verses))
		}
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1 (second fetch cached)", n)
	}
	if ua, _ := userAgent.Load().(string); ua != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, DefaultUserAgent)
	}
}

func TestClientFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL + "/"})
	_, err := c.Fetch(context.Background(), 151)

	var fe *perrors.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusNotFound || fe.Poem != 151 {
		t.Errorf("FetchError = %+v", fe)
	}
	if !strings.HasSuffix(fe.URL, "/Ps_151.html") {
		t.Errorf("FetchError.URL = %q", fe.URL)
	}
}

func TestClientFetchMissingContainerCarriesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>maintenance</body></html>")
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL + "/"})
	_, err := c.Fetch(context.Background(), 2)

	var fe *perrors.FetchError
	if !errors.As(err, &fe) || fe.URL == "" || fe.Reason != "verse container not found" {
		t.Errorf("Fetch() error = %v", err)
	}
}

func TestClientFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Options{BaseURL: url + "/"})
	_, err := c.Fetch(context.Background(), 3)
	if !errors.Is(err, perrors.ErrFetch) {
		t.Errorf("Fetch() error = %v, want ErrFetch", err)
	}
}

func TestClientRateLimitCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, psalm1Page)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL + "/", RequestsPerSecond: 0.001, Burst: 1})
	if _, err := c.Fetch(context.Background(), 1); err != nil {
		t.Fatalf("first Fetch() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, 1)
	if !errors.Is(err, perrors.ErrFetch) {
		t.Errorf("Fetch() over rate limit error = %v, want ErrFetch", err)
	}
}

func TestClientURL(t *testing.T) {
	c := NewClient(Options{})
	if got, want := c.URL(23), "https://bibel.github.io/EUe/ot/Ps_23.html"; got != want {
		t.Errorf("URL(23) = %q, want %q", got, want)
	}
}
