package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/blockedby/listings-os/internal/models"
)

// ErrParse means a required field (title or detail URL) could not be
// extracted. The affected item is skipped; the job continues.
var ErrParse = errors.New("required field missing")

// mediaHostFragments identify the source's photo CDN. Image URLs not
// matching any fragment are page chrome, not listing photos.
var mediaHostFragments = []string{
	"imgs.example-reality.cz",
	"/img/",
	"/images/",
}

// ExtractDetail parses a detail page into a normalized listing. The
// originating list summary supplies fallback values for fields the
// detail page omits (title, location, price, areas carried on the card).
//
// Field policy: a missing title (on both page and summary) is fatal for
// the item and returns ErrParse; every other missing field degrades to
// its zero value or nil. Values that fail validation after parsing
// (zero-looking areas, unparseable prices) are nulled, never propagated.
func ExtractDetail(html string, sourceID uuid.UUID, summary models.ListItemSummary, offer models.OfferType) (*models.Listing, error) {
	if summary.URL == "" {
		return nil, fmt.Errorf("%w: detail url", ErrParse)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	raw := scrapeRawFields(doc)
	if raw.Title == "" {
		raw.Title = summary.Title
	}
	if raw.Title == "" {
		return nil, fmt.Errorf("%w: title", ErrParse)
	}

	listing := &models.Listing{
		SourceID:     sourceID,
		ExternalID:   models.ExternalIDFromURL(summary.URL),
		URL:          summary.URL,
		Title:        raw.Title,
		Description:  raw.Description,
		PropertyType: models.ClassifyPropertyType(raw.Title),
		OfferType:    offer,
		PriceNote:    raw.PriceNote,
		LocationText: summary.Location,
		Rooms:        ParseRooms(raw.Title),
		Photos:       NormalizePhotoURLs(raw.PhotoURLs),
		IsActive:     true,

		ConstructionType: raw.Construction,
		Condition:        raw.Condition,
	}

	listing.Price = ParsePrice(raw.PriceText)
	if listing.Price == nil && summary.Price != nil && *summary.Price > 0 {
		listing.Price = summary.Price
	}

	// areas fall back to the list card when the detail page has none
	listing.AreaBuiltUp = ParseArea(raw.BuiltUpText)
	listing.AreaLand = ParseArea(raw.LandText)
	if listing.AreaBuiltUp == nil && listing.AreaLand == nil {
		listing.AreaBuiltUp = ParseArea(summary.Title)
	}

	fillLocation(listing)

	return listing, nil
}

// scrapeRawFields collects the unparsed strings from a detail document.
func scrapeRawFields(doc *goquery.Document) models.RawDetailFields {
	root := doc.Selection
	raw := models.RawDetailFields{
		Title:       detailRules.title.Resolve(root),
		Description: detailRules.description.Resolve(root),
		PriceText:   detailRules.price.Resolve(root),
		PriceNote:   detailRules.priceNote.Resolve(root),
		BuiltUpText: detailRules.builtUp.Resolve(root),
		LandText:    detailRules.land.Resolve(root),
	}

	for _, src := range detailRules.photos.ResolveAll(root) {
		if isMediaURL(src) {
			raw.PhotoURLs = append(raw.PhotoURLs, src)
		}
	}

	// structural attributes live in a label/value table when present
	doc.Find(detailRules.attrRow).Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(detailRules.attrLabel.Resolve(row))
		value := detailRules.attrValue.Resolve(row)
		if value == "" {
			return
		}
		switch {
		case strings.Contains(label, "zastav"), strings.Contains(label, "built"):
			if raw.BuiltUpText == "" {
				raw.BuiltUpText = value
			}
		case strings.Contains(label, "pozem"), strings.Contains(label, "land"):
			if raw.LandText == "" {
				raw.LandText = value
			}
		case strings.Contains(label, "konstruk"), strings.Contains(label, "stavb"):
			raw.Construction = value
		case strings.Contains(label, "stav"), strings.Contains(label, "condition"):
			raw.Condition = value
		case strings.Contains(label, "kuchy"), strings.Contains(label, "kitchen"):
			raw.HasKitchen = true
		}
	})

	return raw
}

func isMediaURL(src string) bool {
	for _, frag := range mediaHostFragments {
		if strings.Contains(src, frag) {
			return true
		}
	}
	return false
}

// fillLocation splits "Municipality, okres District" style location
// text into its parts. Unrecognized shapes stay in LocationText only.
func fillLocation(l *models.Listing) {
	if l.LocationText == "" {
		return
	}
	parts := strings.Split(l.LocationText, ",")
	l.Municipality = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if rest, ok := strings.CutPrefix(p, "okres "); ok {
			l.District = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(p, "kraj "); ok {
			l.Region = strings.TrimSpace(rest)
		}
	}
}
