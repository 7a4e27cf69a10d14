package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	en := T("invalid_type", nil)
	if en == "invalid_type" || en == "" {
		t.Fatalf("expected a human message, got %q", en)
	}

	SetLanguage("ja")
	if msg := T("invalid_type", nil); msg == en {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	// reset to en
	SetLanguage("en")
}

func TestTranslator_Placeholders(t *testing.T) {
	got := T("out_of_range", map[string]string{"value": "200", "side": "upper", "bound": "150"})
	want := "value 200 is out of range: upper bound is 150"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTranslator_UnknownCodeFallsBack(t *testing.T) {
	if got := T("no_such_code", nil); got != "no_such_code" {
		t.Fatalf("unexpected message %q", got)
	}
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "X:" + code }

func TestSetTranslator(t *testing.T) {
	SetTranslator(upper{})
	defer SetTranslator(nil)
	if got := T("validation", nil); got != "X:validation" {
		t.Fatalf("custom translator not used: %q", got)
	}
}
