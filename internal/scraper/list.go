package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/blockedby/listings-os/internal/models"
)

// ListPage is the outcome of extracting one result-list page.
// Items preserve page order. Skipped counts cards that were present
// but unusable (missing title or detail link).
type ListPage struct {
	Items   []models.ListItemSummary
	Skipped int
}

// ExtractList parses a result-list page into ordered item summaries.
// A page with no recognizable cards yields an empty Items slice and no
// error; callers treat that as the natural end of pagination.
func ExtractList(html string, pageURL string) (*ListPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse list page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	page := &ListPage{}
	doc.Find(listRules.card).Each(func(_ int, card *goquery.Selection) {
		title := listRules.title.Resolve(card)
		href := listRules.url.Resolve(card)
		if title == "" || href == "" {
			page.Skipped++
			return
		}

		item := models.ListItemSummary{
			Title:    title,
			URL:      absoluteURL(base, href),
			Location: listRules.location.Resolve(card),
			Price:    ParsePrice(listRules.price.Resolve(card)),
		}
		page.Items = append(page.Items, item)
	})

	return page, nil
}

// absoluteURL resolves href against the page URL so detail links are
// always absolute, whatever form the source emits them in.
func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
