package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFrom(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc.Selection
}

func TestChainResolve_FirstNonEmptyWins(t *testing.T) {
	chain := Chain{
		{Selector: ".primary"},
		{Selector: ".fallback"},
	}

	t.Run("earlier rule wins when both match", func(t *testing.T) {
		sel := docFrom(t, `<div><span class="primary">new layout</span><span class="fallback">old layout</span></div>`)
		if got := chain.Resolve(sel); got != "new layout" {
			t.Errorf("got %q, want %q", got, "new layout")
		}
	})

	t.Run("falls through when earlier rule matches nothing", func(t *testing.T) {
		sel := docFrom(t, `<div><span class="fallback">old layout</span></div>`)
		if got := chain.Resolve(sel); got != "old layout" {
			t.Errorf("got %q, want %q", got, "old layout")
		}
	})

	t.Run("falls through when earlier rule yields empty text", func(t *testing.T) {
		sel := docFrom(t, `<div><span class="primary">  </span><span class="fallback">value</span></div>`)
		if got := chain.Resolve(sel); got != "value" {
			t.Errorf("got %q, want %q", got, "value")
		}
	})

	t.Run("empty when no rule matches", func(t *testing.T) {
		sel := docFrom(t, `<div><span class="other">x</span></div>`)
		if got := chain.Resolve(sel); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}

func TestChainResolve_AttrRules(t *testing.T) {
	chain := Chain{
		{Selector: "a.detail", Attr: "href"},
		{Selector: "a", Attr: "href"},
	}

	sel := docFrom(t, `<div><a href="/generic">g</a><a class="detail" href="/specific">s</a></div>`)
	if got := chain.Resolve(sel); got != "/specific" {
		t.Errorf("got %q, want /specific", got)
	}

	noAttr := docFrom(t, `<div><a class="detail">no href</a><a href="/generic">g</a></div>`)
	if got := chain.Resolve(noAttr); got != "/generic" {
		t.Errorf("got %q, want fallthrough to /generic", got)
	}
}

func TestChainResolveAll(t *testing.T) {
	chain := Chain{
		{Selector: "div.gallery img", Attr: "src"},
		{Selector: "img", Attr: "src"},
	}

	t.Run("first matching rule yields all values in order", func(t *testing.T) {
		sel := docFrom(t, `<div class="gallery"><img src="1.jpg"><img src="2.jpg"></div><img src="stray.jpg">`)
		got := chain.ResolveAll(sel)
		want := []string{"1.jpg", "2.jpg"}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("later rule used only when earlier yields nothing", func(t *testing.T) {
		sel := docFrom(t, `<img src="only.jpg">`)
		got := chain.ResolveAll(sel)
		if len(got) != 1 || got[0] != "only.jpg" {
			t.Errorf("got %v, want [only.jpg]", got)
		}
	})

	t.Run("nil when nothing matches", func(t *testing.T) {
		if got := chain.ResolveAll(docFrom(t, `<p>no images</p>`)); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})
}
