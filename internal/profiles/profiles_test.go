package profiles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blockedby/listings-os/internal/models"
)

const validYAML = `
profiles:
  - name: prague-houses
    region_id: 116
    district_id: 3713
    type_mask: 6
    price_max: 7500000
    search_type: 2
    offer_type: SALE
  - name: brno-flats
    query: "byt 2+kk"
    city: Brno
    search_type: 1
  - name: pinned
    direct_url: "https://reality.example.cz/search?regions[1]=on"
`

func TestParse(t *testing.T) {
	got, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d profiles, want 3", len(got))
	}

	p, ok := got["prague-houses"]
	if !ok {
		t.Fatal("prague-houses missing")
	}
	if p.RegionID == nil || *p.RegionID != 116 {
		t.Errorf("region_id = %v", p.RegionID)
	}
	if p.DistrictID == nil || *p.DistrictID != 3713 {
		t.Errorf("district_id = %v", p.DistrictID)
	}
	if p.TypeMask != 6 {
		t.Errorf("type_mask = %d", p.TypeMask)
	}
	if p.PriceMax == nil || *p.PriceMax != 7500000 {
		t.Errorf("price_max = %v", p.PriceMax)
	}
	if p.SearchType != models.SearchByRegion {
		t.Errorf("search_type = %d", p.SearchType)
	}
	if p.OfferType != models.OfferSale {
		t.Errorf("offer_type = %q", p.OfferType)
	}

	if got["pinned"].DirectURL == "" {
		t.Error("direct_url not parsed")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"empty file", "", ErrNoProfiles},
		{"no profiles key", "other: 1", ErrNoProfiles},
		{
			"unnamed profile",
			"profiles:\n  - query: byt\n",
			ErrUnnamed,
		},
		{
			"duplicate names",
			"profiles:\n  - name: a\n    query: x\n  - name: a\n    query: y\n",
			ErrDuplicateName,
		},
		{
			"unresolvable profile",
			"profiles:\n  - name: hollow\n    type_mask: 6\n",
			ErrUnresolvable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("profiles: [unterminated"))
	if err == nil {
		t.Fatal("want error for malformed yaml")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d profiles, want 3", len(got))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("want error for missing file")
	}
}
