package query

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n", ""},
		{"trims", "  Мінск  ", "мiнск"},
		{"belarusian i", "Історыя", "iсторыя"},
		{"cyrillic i", "Историк", "iсторiк"},
		{"latin I upper", "IVAN", "ivan"},
		{"mixed", "Иі I", "ii i"},
		{"untouched letters", "Ў ЎСЁ", "ў ўсё"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", " x ", "Історыя", "ИСТОРИЯ", "Мінск / Беларусь", "ǅ", "İstanbul", "ß"}
	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestNormalize_FoldsLookAlikes(t *testing.T) {
	variants := []rune{'i', 'I', 'і', 'І', 'и', 'И'}
	want := Normalize("мiр")
	for _, v := range variants {
		s := "М" + string(v) + "р"
		if got := Normalize(s); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", s, got, want)
		}
	}

	if Normalize("Історыя") != Normalize("ИСТОРЫЯ") {
		t.Errorf("Normalize(%q) != Normalize(%q)", "Історыя", "ИСТОРЫЯ")
	}
}

func TestNormalizePtr(t *testing.T) {
	if got := NormalizePtr(nil); got != "" {
		t.Errorf("NormalizePtr(nil) = %q, want empty", got)
	}
	s := " Іван "
	if got := NormalizePtr(&s); got != "iван" {
		t.Errorf("NormalizePtr(%q) = %q, want %q", s, got, "iван")
	}
}
