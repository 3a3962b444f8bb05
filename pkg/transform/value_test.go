package transform

import (
	"encoding/json"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"double space and hyphen", "Men's  T-Shirt", "men's-t-shirt"},
		{"mixed separators", "Unisex - Hoodie\t Black", "unisex-hoodie-black"},
		{"already a slug", "men's-t-shirt", "men's-t-shirt"},
		{"hyphen run", "A---B", "a-b"},
		{"unicode", "ÉTÉ Tote", "été-tote"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slug(tt.input)
			if got != tt.expected {
				t.Errorf("Slug(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
			if again := Slug(got); again != got {
				t.Errorf("Slug is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"19.99", 1999, false},
		{"0.29", 29, false},
		{"1.1", 110, false},
		{"5", 500, false},
		{".5", 50, false},
		{"12.999", 1299, false},
		{" 7.00 ", 700, false},
		{"", 0, true},
		{".", 0, true},
		{"abc", 0, true},
		{"-1.00", 0, true},
		{"1,99", 0, true},
		{"92233720368547758.07", 9223372036854775807, false},
		{"92233720368547758.08", 0, true},
		{"92233720368547759", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParsePrice(%q) = %d, expected %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatPrice_RoundTrip(t *testing.T) {
	for _, s := range []string{"19.99", "0.29", "100.00", "0.00", "1.05"} {
		cents, err := ParsePrice(s)
		if err != nil {
			t.Fatalf("ParsePrice(%q): %v", s, err)
		}
		if got := FormatPrice(cents); got != s {
			t.Errorf("FormatPrice(ParsePrice(%q)) = %q", s, got)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	price, err := r.Get("price")
	if err != nil {
		t.Fatal(err)
	}
	got, err := price.Transform(json.Number("13.50"))
	if err != nil || got != int64(1350) {
		t.Errorf("price transform: got %v, %v", got, err)
	}

	id, _ := r.Get("id")
	if got, _ := id.Transform(json.Number("4011")); got != "4011" {
		t.Errorf("id transform: got %v", got)
	}
	if _, err := id.Transform(true); err == nil {
		t.Error("Expected error coercing bool to id")
	}

	if _, err := r.Get("nope"); err == nil {
		t.Error("Expected error for unknown transformer")
	}
}
