package match

import "testing"

func TestTransliterate(t *testing.T) {
	t.Run("Romanizes Cyrillic", func(t *testing.T) {
		got := Transliterate("дип перпл")
		if got != "dip perpl" {
			t.Errorf("expected 'dip perpl', got %q", got)
		}

		got = Transliterate("чайковский")
		if got != "chaykovskiy" {
			t.Errorf("expected 'chaykovskiy', got %q", got)
		}
	})

	t.Run("Romanizes Mixed Text Without Touching Latin", func(t *testing.T) {
		got := Transliterate("земфира feat nobody")
		if got != "zemfira feat nobody" {
			t.Errorf("expected 'zemfira feat nobody', got %q", got)
		}
	})

	t.Run("Cyrillicizes Latin With Digraphs First", func(t *testing.T) {
		got := Transliterate("shchuka")
		if got != "щука" {
			t.Errorf("expected 'щука', got %q", got)
		}

		got = Transliterate("zhuk")
		if got != "жук" {
			t.Errorf("expected 'жук', got %q", got)
		}
	})

	t.Run("Is Total", func(t *testing.T) {
		// characters outside both scripts pass through unchanged
		got := Transliterate("группа 123 !?")
		if got != "gruppa 123 !?" {
			t.Errorf("expected 'gruppa 123 !?', got %q", got)
		}

		if Transliterate("") != "" {
			t.Error("empty input must map to empty output")
		}
	})

	t.Run("Is Deterministic", func(t *testing.T) {
		first := Transliterate("Дип Перпл")
		for range 5 {
			if got := Transliterate("Дип Перпл"); got != first {
				t.Fatalf("transliterate not deterministic: %q vs %q", got, first)
			}
		}
	})
}
