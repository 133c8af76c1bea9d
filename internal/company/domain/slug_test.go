package domain

import (
	"regexp"
	"testing"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugifyGrammar(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  Acme   Corp  ", "acme-corp"},
		{"Acme_Corp", "acme-corp"},
		{"ACME!!! Corp???", "acme-corp"},
		{"--Acme--Corp--", "acme-corp"},
		{"acme-corp", "acme-corp"},
		{"Trainee Hub 2024", "trainee-hub-2024"},
	}

	for _, tc := range cases {
		got := Slugify(tc.in)
		if got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if got != "" && !slugPattern.MatchString(got) {
			t.Fatalf("Slugify(%q) = %q does not match slug grammar", tc.in, got)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{
		"Acme Corp",
		"Observatoire de l'Espace",
		"A & B Testing",
		"___",
		"",
		"Trains & Trainees, Inc.",
	}
	for _, in := range inputs {
		once := Slugify(in)
		twice := Slugify(once)
		if once != twice {
			t.Fatalf("Slugify not idempotent for %q: %q != %q", in, once, twice)
		}
		if once != "" && !slugPattern.MatchString(once) {
			t.Fatalf("Slugify(%q) = %q does not match slug grammar", in, once)
		}
	}
}
