package util

import "testing"

func TestParseGermanFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"3,50", 3.5},
		{"1.234,56", 1234.56},
		{"1.234", 1234},
		{"12.5", 12.5},
		{"10", 10},
		{" 2,00 ", 2},
	}
	for _, c := range cases {
		got, err := ParseGermanFloat(c.in)
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%q: got %v want %v", c.in, got, c.want)
		}
	}
}

func TestParseGermanFloatRejects(t *testing.T) {
	for _, in := range []string{"", "N/A", "abc", "-"} {
		if _, err := ParseGermanFloat(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestParsePrice(t *testing.T) {
	got, err := ParsePrice("1.234,56 €")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1234.56 {
		t.Fatalf("got %v", got)
	}

	got, err = ParsePrice("85,50 EUR")
	if err != nil {
		t.Fatal(err)
	}
	if got != 85.5 {
		t.Fatalf("got %v", got)
	}

	if _, err := ParsePrice("N/A"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParsePrice("€"); err == nil {
		t.Fatal("expected error")
	}
}
