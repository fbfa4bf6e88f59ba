package app

import (
	"errors"
	"testing"

	"talent-assessment-service/internal/domain"
)

func TestHandoffLinkRoundTrip(t *testing.T) {
	bases := []string{
		"https://talent.example.com/",
		"https://talent.example.com/app/index.html",
		"https://talent.example.com/#/dashboard",
		"",
	}
	for _, base := range bases {
		link := HandoffLink(base, "a1b2 c3")
		id, err := ParseHandoffLocator(link)
		if err != nil {
			t.Fatalf("base %q: parse %q: %v", base, link, err)
		}
		if id != "a1b2 c3" {
			t.Fatalf("base %q: got id %q", base, id)
		}
	}

	if got := HandoffLink("https://talent.example.com/", "xyz"); got != "https://talent.example.com/#/exam/xyz" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestParseHandoffLocatorForms(t *testing.T) {
	valid := map[string]string{
		"#/exam/abc":                     "abc",
		"/exam/abc":                      "abc",
		"/exam/abc/":                     "abc",
		"http://localhost:8080/exam/abc": "abc",
	}
	for locator, want := range valid {
		got, err := ParseHandoffLocator(locator)
		if err != nil || got != want {
			t.Fatalf("%q: got %q err %v", locator, got, err)
		}
	}

	for _, locator := range []string{"", "   ", "#/dashboard", "/exam/", "/exam/a/b", "http://host/"} {
		if _, err := ParseHandoffLocator(locator); !errors.Is(err, domain.ErrInvalidLocator) {
			t.Fatalf("%q: expected invalid locator, got %v", locator, err)
		}
	}
}
