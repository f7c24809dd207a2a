package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/blockedby/listings-os/internal/models"
)

// ErrInvalidProfile means a search profile carries neither a direct URL,
// nor region ids, nor a free-text query, so no query URL can be derived.
var ErrInvalidProfile = errors.New("profile has no direct url, region or query")

// ResolveProfileURL turns a search profile into the single canonical
// query URL for the given source base URL.
//
// Resolution order: a direct URL wins outright and every other field is
// ignored; otherwise region ids produce a region-scoped URL and a
// free-text query produces a text-mode URL, selected by SearchType.
// The source keeps its bracketed query keys unescaped, so the region
// parameters are assembled by hand rather than through url.Values.
func ResolveProfileURL(baseURL string, p models.SearchProfile) (string, error) {
	if p.DirectURL != "" {
		return p.DirectURL, nil
	}

	switch {
	case p.SearchType == models.SearchByRegion && p.RegionID != nil:
		return regionURL(baseURL, p), nil
	case p.Query != "":
		return textURL(baseURL, p), nil
	case p.RegionID != nil:
		// region ids present but the mode flag says text and there is
		// no query; fall back to region resolution rather than failing
		return regionURL(baseURL, p), nil
	}
	return "", ErrInvalidProfile
}

func regionURL(baseURL string, p models.SearchProfile) string {
	var params []string

	if p.DistrictID != nil {
		params = append(params, fmt.Sprintf("regions[%d][%d]=on", *p.RegionID, *p.DistrictID))
	} else {
		params = append(params, fmt.Sprintf("regions[%d]=on", *p.RegionID))
	}
	if p.TypeMask > 0 {
		params = append(params, fmt.Sprintf("types[%d]=on", p.TypeMask))
	}
	params = append(params, commonParams(p)...)

	return strings.TrimSuffix(baseURL, "/") + "/search?" + strings.Join(params, "&")
}

func textURL(baseURL string, p models.SearchProfile) string {
	v := url.Values{}
	v.Set("q", p.Query)
	if p.City != "" {
		v.Set("city", p.City)
	}

	params := []string{v.Encode()}
	if p.TypeMask > 0 {
		params = append(params, fmt.Sprintf("types[%d]=on", p.TypeMask))
	}
	params = append(params, commonParams(p)...)

	return strings.TrimSuffix(baseURL, "/") + "/search?" + strings.Join(params, "&")
}

// commonParams emits the bound and offer parameters shared by both
// modes. Numeric bounds appear only when set.
func commonParams(p models.SearchProfile) []string {
	var params []string
	if p.PriceMin != nil {
		params = append(params, fmt.Sprintf("price_from=%d", *p.PriceMin))
	}
	if p.PriceMax != nil {
		params = append(params, fmt.Sprintf("price_to=%d", *p.PriceMax))
	}
	if p.OfferType == models.OfferRent {
		params = append(params, "offer=rent")
	} else if p.OfferType == models.OfferSale {
		params = append(params, "offer=sale")
	}
	return params
}

// PageURL appends the page cursor to a resolved query URL. Page one is
// the bare URL itself.
func PageURL(queryURL string, page int) string {
	if page <= 1 {
		return queryURL
	}
	sep := "?"
	if strings.Contains(queryURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", queryURL, sep, page)
}
