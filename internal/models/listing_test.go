package models

import "testing"

// the classification table order is part of the contract: a title
// matching several rules must resolve to the highest-priority one
func TestClassifyPropertyType_Order(t *testing.T) {
	tests := []struct {
		title string
		want  PropertyType
	}{
		{"Prodej rodinného domu 120 m²", PropertyHouse},
		{"Prodej vily se zahradou", PropertyHouse},
		{"Beautiful house with garden", PropertyHouse},
		{"Prodej bytu 3+kk, Praha", PropertyApartment},
		{"Modern apartment downtown", PropertyApartment},
		{"Prodej pozemku 1500 m²", PropertyLand},
		{"Building plot for sale", PropertyLand},
		{"Prodej chaty u lesa", PropertyCottage},
		{"Chalupa v podhůří", PropertyCottage},
		{"Pronájem skladových prostor", PropertyCommercial},
		{"Kancelářské prostory k pronájmu", PropertyCommercial},
		{"Prodej garáže", PropertyOther},
		{"", PropertyOther},

		// house rule outranks land rule when both match
		{"Prodej domu s pozemkem 800 m²", PropertyHouse},
		// apartment rule outranks commercial when both match
		{"Byt 2+1 nad kanceláří", PropertyApartment},
	}

	for _, tt := range tests {
		if got := ClassifyPropertyType(tt.title); got != tt.want {
			t.Errorf("ClassifyPropertyType(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestExternalIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://reality.example.cz/inzerat/prodej-domu-praha-123456/", "123456"},
		{"https://reality.example.cz/inzerat/prodej-domu-praha-123456", "123456"},
		{"https://reality.example.cz/detail/98765432?from=list", "98765432"},
		{"https://reality.example.cz/inzerat/nice-cottage/", "nice-cottage"},
	}

	for _, tt := range tests {
		if got := ExternalIDFromURL(tt.url); got != tt.want {
			t.Errorf("ExternalIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

// the same listing observed twice must map to the same external id,
// whatever tracking junk the list page appends
func TestExternalIDFromURL_Stable(t *testing.T) {
	a := ExternalIDFromURL("https://reality.example.cz/inzerat/prodej-domu-123456/")
	b := ExternalIDFromURL("https://reality.example.cz/inzerat/prodej-domu-123456/?utm_source=feed")
	if a != b {
		t.Errorf("external ids differ: %q vs %q", a, b)
	}
}
