package match

import "testing"

func TestNormalize(t *testing.T) {
	t.Run("Lowercases And Collapses Whitespace", func(t *testing.T) {
		got := Normalize("  Smoke  On   The Water ")
		if got != "smoke on the water" {
			t.Errorf("expected 'smoke on the water', got %q", got)
		}
	})

	t.Run("Strips Bracketed Featuring Clause", func(t *testing.T) {
		got := Normalize("Numb (feat. Jay-Z)")
		if got != "numb" {
			t.Errorf("expected 'numb', got %q", got)
		}
	})

	t.Run("Strips Inline Featuring Clause", func(t *testing.T) {
		got := Normalize("Airplanes feat. Hayley Williams")
		if got != "airplanes" {
			t.Errorf("expected 'airplanes', got %q", got)
		}

		got = Normalize("Forever ft B.o.B")
		if got != "forever" {
			t.Errorf("expected 'forever', got %q", got)
		}
	})

	t.Run("Strips Remaining Bracketed Qualifiers", func(t *testing.T) {
		got := Normalize("Bohemian Rhapsody (Remastered 2011)")
		if got != "bohemian rhapsody" {
			t.Errorf("expected 'bohemian rhapsody', got %q", got)
		}

		got = Normalize("Money [2011 Remaster]")
		if got != "money" {
			t.Errorf("expected 'money', got %q", got)
		}
	})

	t.Run("Strips Trailing Dash Qualifier", func(t *testing.T) {
		got := Normalize("Heroes - Single Version")
		if got != "heroes" {
			t.Errorf("expected 'heroes', got %q", got)
		}
	})

	t.Run("Strips Diacritics", func(t *testing.T) {
		got := Normalize("Beyoncé")
		if got != "beyonce" {
			t.Errorf("expected 'beyonce', got %q", got)
		}

		got = Normalize("Motörhead")
		if got != "motorhead" {
			t.Errorf("expected 'motorhead', got %q", got)
		}
	})

	t.Run("Strips Punctuation", func(t *testing.T) {
		got := Normalize("AC/DC")
		if got != "acdc" {
			t.Errorf("expected 'acdc', got %q", got)
		}

		got = Normalize("Don't Stop Me Now!")
		if got != "dont stop me now" {
			t.Errorf("expected 'dont stop me now', got %q", got)
		}
	})

	t.Run("Keeps Cyrillic Letters", func(t *testing.T) {
		got := Normalize("Дип Перпл")
		if got != "дип перпл" {
			t.Errorf("expected 'дип перпл', got %q", got)
		}
	})

	t.Run("Is Deterministic", func(t *testing.T) {
		input := "Smoke On The Water (Remastered) feat. Nobody"
		first := Normalize(input)
		for range 5 {
			if got := Normalize(input); got != first {
				t.Fatalf("normalize not deterministic: %q vs %q", got, first)
			}
		}
	})
}

func TestKey(t *testing.T) {
	t.Run("Separates Artist And Title", func(t *testing.T) {
		if Key("a b", "c") == Key("a", "b c") {
			t.Error("keys with shifted word boundaries must differ")
		}
	})

	t.Run("Equal For Normalized Variants", func(t *testing.T) {
		a := Key("Deep Purple", "Smoke on the Water")
		b := Key("deep purple", "Smoke On The Water (Remastered 2024)")
		if a != b {
			t.Errorf("expected equal keys, got %q and %q", a, b)
		}
	})
}
