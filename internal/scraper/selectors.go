package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule is one extraction attempt: a CSS selector plus an optional
// attribute name. An empty Attr means the element's trimmed text.
type Rule struct {
	Selector string
	Attr     string
}

// Chain is an ordered list of rules for one logical field. Rules are
// tried strictly in slice order and the first non-empty result wins;
// later rules are never consulted after a hit. The tables below are
// fixed priority lists, so extraction stays deterministic even when a
// page matches several rules at once.
type Chain []Rule

// Resolve applies the chain to a selection and returns the first
// non-empty match, or "" when no rule matched.
func (c Chain) Resolve(sel *goquery.Selection) string {
	for _, rule := range c {
		found := sel.Find(rule.Selector).First()
		if found.Length() == 0 {
			continue
		}
		var v string
		if rule.Attr == "" {
			v = strings.TrimSpace(found.Text())
		} else {
			v, _ = found.Attr(rule.Attr)
			v = strings.TrimSpace(v)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// ResolveAll returns every value the first matching rule yields, in
// document order. Used for multi-valued fields such as photos.
func (c Chain) ResolveAll(sel *goquery.Selection) []string {
	for _, rule := range c {
		var out []string
		sel.Find(rule.Selector).Each(func(_ int, s *goquery.Selection) {
			var v string
			if rule.Attr == "" {
				v = strings.TrimSpace(s.Text())
			} else {
				v, _ = s.Attr(rule.Attr)
				v = strings.TrimSpace(v)
			}
			if v != "" {
				out = append(out, v)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// listRules are the fallback chains for result-list cards. The source
// reshuffles its markup without notice, so every field carries the
// selectors of every layout generation we have seen, newest first.
var listRules = struct {
	card     string
	title    Chain
	url      Chain
	location Chain
	price    Chain
}{
	card: "div.inzeraty.inzeratyflex, div.listing-card, article.estate-card",
	title: Chain{
		{Selector: "h2.nadpis a"},
		{Selector: "h2 a"},
		{Selector: ".listing-title"},
	},
	url: Chain{
		{Selector: "h2.nadpis a", Attr: "href"},
		{Selector: "h2 a", Attr: "href"},
		{Selector: "a.listing-link", Attr: "href"},
	},
	location: Chain{
		{Selector: "div.inzeratylok"},
		{Selector: ".listing-location"},
		{Selector: ".locality"},
	},
	price: Chain{
		{Selector: "div.inzeratycena b"},
		{Selector: "div.inzeratycena"},
		{Selector: ".listing-price"},
	},
}

// detailRules are the fallback chains for detail pages.
var detailRules = struct {
	title       Chain
	description Chain
	price       Chain
	priceNote   Chain
	builtUp     Chain
	land        Chain
	photos      Chain
	attrRow     string
	attrLabel   Chain
	attrValue   Chain
}{
	title: Chain{
		{Selector: "h1.nadpisdetail"},
		{Selector: "h1"},
		{Selector: ".detail-title"},
	},
	description: Chain{
		{Selector: "div.popisdetail"},
		{Selector: ".detail-description"},
		{Selector: ".description"},
	},
	price: Chain{
		{Selector: "table.listadvlevo td b"},
		{Selector: ".detail-price"},
		{Selector: "span.cena"},
	},
	priceNote: Chain{
		{Selector: ".price-note"},
		{Selector: "span.cenapozn"},
	},
	builtUp: Chain{
		{Selector: "td.zastavena-plocha"},
		{Selector: ".built-up-area"},
	},
	land: Chain{
		{Selector: "td.plocha-pozemku"},
		{Selector: ".land-area"},
	},
	photos: Chain{
		{Selector: "div.galerie img", Attr: "src"},
		{Selector: "div.carousel img", Attr: "src"},
		{Selector: "img.obrazek", Attr: "src"},
	},
	attrRow: "table.detail-params tr, table.listadvlevo tr",
	attrLabel: Chain{
		{Selector: "td:first-of-type"},
		{Selector: "th"},
	},
	attrValue: Chain{
		{Selector: "td:last-of-type"},
	},
}
