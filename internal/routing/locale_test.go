package routing

import "testing"

func TestRouter_MatchesRegisteredPrefix(t *testing.T) {
	r := NewRouter("GA-default", map[string]string{"+34": "GA-es"}, DefaultLanguages)

	for _, phone := range []string{"+34911222333", "+34600000000"} {
		svc, lang := r.Resolve(phone)
		if svc != "GA-es" || lang != "es-ES" {
			t.Fatalf("Resolve(%q) = %q, %q", phone, svc, lang)
		}
	}
}

func TestRouter_LongestPrefixWins(t *testing.T) {
	r := NewRouter("GA-default",
		map[string]string{"+35": "GA-35", "+351": "GA-351"},
		map[string]string{"+35": "xx-35", "+351": "pt-PT"},
	)

	svc, lang := r.Resolve("+351912345678")
	if svc != "GA-351" || lang != "pt-PT" {
		t.Fatalf("expected 3-digit code mapping, got %q, %q", svc, lang)
	}
	svc, lang = r.Resolve("+359888000000")
	if svc != "GA-35" || lang != "xx-35" {
		t.Fatalf("expected 2-digit code mapping, got %q, %q", svc, lang)
	}
}

func TestRouter_NANPSubregionBeatsCountryCode(t *testing.T) {
	r := NewRouter("GA-default", nil, DefaultLanguages)

	if _, lang := r.Resolve("+17875550100"); lang != "es-US" {
		t.Fatalf("expected es-US for +1787, got %q", lang)
	}
	if _, lang := r.Resolve("+12125550100"); lang != "en-US" {
		t.Fatalf("expected en-US for +1, got %q", lang)
	}
}

func TestRouter_DefaultsForEmptyOrUnknown(t *testing.T) {
	r := NewRouter("GA-default", map[string]string{"+34": "GA-es"}, DefaultLanguages)

	for _, phone := range []string{"", "   ", "+999123", "client:guest-1", "34911222333"} {
		svc, lang := r.Resolve(phone)
		if svc != "GA-default" || lang != DefaultLanguage {
			t.Fatalf("Resolve(%q) = %q, %q; want defaults", phone, svc, lang)
		}
	}
}

func TestRouter_PrefixWithOnlyLanguageUsesDefaultService(t *testing.T) {
	r := NewRouter("GA-default", nil, map[string]string{"+49": "de-DE"})
	svc, lang := r.Resolve("+4930123456")
	if svc != "GA-default" || lang != "de-DE" {
		t.Fatalf("got %q, %q", svc, lang)
	}
}

func TestRouter_PrefixWithOnlyServiceUsesDefaultLanguage(t *testing.T) {
	r := NewRouter("GA-default", map[string]string{"+7": "GA-ru"}, nil)
	svc, lang := r.Resolve("+74951234567")
	if svc != "GA-ru" || lang != DefaultLanguage {
		t.Fatalf("got %q, %q", svc, lang)
	}
}

func TestRouter_IgnoresMalformedPrefixes(t *testing.T) {
	r := NewRouter("GA-default", map[string]string{"34": "GA-bad", "+": "GA-bad"}, nil)
	if len(r.Routes()) != 0 {
		t.Fatalf("expected malformed prefixes dropped, got %+v", r.Routes())
	}
}

func TestRouter_RoutesOrderedLongestFirst(t *testing.T) {
	r := NewRouter("GA-default", nil, DefaultLanguages)
	routes := r.Routes()
	for i := 1; i < len(routes); i++ {
		if len(routes[i-1].Prefix) < len(routes[i].Prefix) {
			t.Fatalf("routes not sorted by descending length at %d: %q before %q", i, routes[i-1].Prefix, routes[i].Prefix)
		}
	}
}
