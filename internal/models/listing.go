// Package models defines shared data types for the listings pipeline.
package models

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OfferType distinguishes sale from rental listings.
type OfferType string

// OfferType constants.
const (
	OfferSale OfferType = "SALE"
	OfferRent OfferType = "RENT"
)

// PropertyType is the category a listing is classified into from its title.
type PropertyType string

// PropertyType constants.
const (
	PropertyHouse      PropertyType = "HOUSE"
	PropertyApartment  PropertyType = "APARTMENT"
	PropertyLand       PropertyType = "LAND"
	PropertyCottage    PropertyType = "COTTAGE"
	PropertyCommercial PropertyType = "COMMERCIAL"
	PropertyOther      PropertyType = "OTHER"
)

// propertyTypeRule maps a title pattern to a property type.
// Rules are tried in order; the first match wins, so more specific
// patterns must come before more generic ones.
type propertyTypeRule struct {
	pattern *regexp.Regexp
	result  PropertyType
}

// propertyTypeRules is the fixed classification table. Order is part of
// the contract: "prodej domu s pozemkem" is a house, not land, because
// the house rule sits above the land rule.
var propertyTypeRules = []propertyTypeRule{
	{regexp.MustCompile(`(?i)rodinn|vila|villa|\bd[uů]m\b|\bdomu\b|house`), PropertyHouse},
	{regexp.MustCompile(`(?i)\bbyt\b|\bbytu\b|apartm|apartment|flat`), PropertyApartment},
	{regexp.MustCompile(`(?i)pozem|parcel|\bland\b|\bplot\b`), PropertyLand},
	{regexp.MustCompile(`(?i)chat[ay]|chalup|cottage`), PropertyCottage},
	{regexp.MustCompile(`(?i)komer[cč]|sklad|kancel[aá][rř]|warehouse|commercial|office`), PropertyCommercial},
}

// ClassifyPropertyType maps a listing title to a PropertyType using the
// ordered rule table. Unmatched titles fall through to PropertyOther.
func ClassifyPropertyType(title string) PropertyType {
	for _, rule := range propertyTypeRules {
		if rule.pattern.MatchString(title) {
			return rule.result
		}
	}
	return PropertyOther
}

// Source represents one upstream listings site.
type Source struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Code     string    `json:"code" db:"code"`
	Name     string    `json:"name" db:"name"`
	BaseURL  string    `json:"base_url" db:"base_url"`
	IsActive bool      `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SearchProfile describes one saved search against a source.
// DirectURL, when set, overrides every other field.
type SearchProfile struct {
	Name      string `json:"name" yaml:"name"`
	DirectURL string `json:"direct_url,omitempty" yaml:"direct_url"`

	// region mode (SearchType == SearchByRegion)
	RegionID   *int `json:"region_id,omitempty" yaml:"region_id"`
	DistrictID *int `json:"district_id,omitempty" yaml:"district_id"`

	// text mode (SearchType == SearchByText)
	City  string `json:"city,omitempty" yaml:"city"`
	Query string `json:"query,omitempty" yaml:"query"`

	TypeMask   int       `json:"type_mask,omitempty" yaml:"type_mask"`
	PriceMin   *int64    `json:"price_min,omitempty" yaml:"price_min"`
	PriceMax   *int64    `json:"price_max,omitempty" yaml:"price_max"`
	SearchType int       `json:"search_type,omitempty" yaml:"search_type"`
	OfferType  OfferType `json:"offer_type,omitempty" yaml:"offer_type"`
	MaxPages   int       `json:"max_pages,omitempty" yaml:"max_pages"`
}

// SearchType values.
const (
	SearchByText   = 1
	SearchByRegion = 2
)

// ListItemSummary is one card scraped from a result list page.
// It lives only for the duration of a pagination pass.
type ListItemSummary struct {
	Title    string
	URL      string
	Location string
	Price    *float64
}

// RawDetailFields holds the unparsed strings scraped from a detail page.
type RawDetailFields struct {
	Title        string
	Description  string
	PriceText    string
	PriceNote    string
	BuiltUpText  string
	LandText     string
	RoomsText    string
	Construction string
	Condition    string
	HasKitchen   bool
	PhotoURLs    []string
}

// Listing is the canonical normalized record persisted per (source, external id).
type Listing struct {
	ID         uuid.UUID `json:"id" gorm:"column:id;primaryKey"`
	SourceID   uuid.UUID `json:"source_id" gorm:"column:source_id"`
	ExternalID string    `json:"external_id" gorm:"column:external_id"`
	URL        string    `json:"url" gorm:"column:url"`

	Title        string       `json:"title" gorm:"column:title"`
	Description  string       `json:"description" gorm:"column:description"`
	PropertyType PropertyType `json:"property_type" gorm:"column:property_type"`
	OfferType    OfferType    `json:"offer_type" gorm:"column:offer_type"`

	Price     *float64 `json:"price,omitempty" gorm:"column:price"`
	PriceNote string   `json:"price_note,omitempty" gorm:"column:price_note"`

	LocationText string `json:"location_text,omitempty" gorm:"column:location_text"`
	Region       string `json:"region,omitempty" gorm:"column:region"`
	District     string `json:"district,omitempty" gorm:"column:district"`
	Municipality string `json:"municipality,omitempty" gorm:"column:municipality"`

	AreaBuiltUp      *float64 `json:"area_built_up,omitempty" gorm:"column:area_built_up"`
	AreaLand         *float64 `json:"area_land,omitempty" gorm:"column:area_land"`
	Rooms            *int     `json:"rooms,omitempty" gorm:"column:rooms"`
	ConstructionType string   `json:"construction_type,omitempty" gorm:"column:construction_type"`
	Condition        string   `json:"condition,omitempty" gorm:"column:condition"`

	Photos []string `json:"photos" gorm:"column:photos;serializer:json"`

	IsActive    bool      `json:"is_active" gorm:"column:is_active"`
	FirstSeenAt time.Time `json:"first_seen_at" gorm:"column:first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at" gorm:"column:last_seen_at"`
}

// TableName implements the gorm table naming convention.
func (Listing) TableName() string { return "listings" }

// numericIDPattern matches a trailing numeric id in a URL slug,
// e.g. "prodej-domu-praha-123456" or "/detail/123456".
var numericIDPattern = regexp.MustCompile(`(\d{4,})/?$`)

// ExternalIDFromURL derives a stable external id from a detail URL.
// A trailing numeric id is preferred; otherwise the last path segment
// is used verbatim. Query strings and fragments never contribute, so
// tracking parameters don't split one listing into several.
func ExternalIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimSuffix(rawURL, "/")
	}
	p := strings.TrimSuffix(u.Path, "/")
	if m := numericIDPattern.FindStringSubmatch(p); m != nil {
		return m[1]
	}
	return path.Base(p)
}

// ScrapeScan records one pagination pass over a source.
// Full scans drive listing inactivation: anything not re-observed
// during a completed full scan is marked inactive.
type ScrapeScan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	SourceID   uuid.UUID  `json:"source_id" db:"source_id"`
	Full       bool       `json:"full" db:"full"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`

	Found    int `json:"found" db:"found"`
	Upserted int `json:"upserted" db:"upserted"`
	Skipped  int `json:"skipped" db:"skipped"`
	Errors   int `json:"errors" db:"errors"`
}
