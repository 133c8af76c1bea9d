package domain

import "github.com/gosimple/slug"

func init() {
	// Underscores are not part of the slug grammar; fold them into the
	// hyphen separator before slug.Make runs its own normalization.
	slug.CustomSub = map[string]string{"_": "-"}
}

// Slugify derives a company slug from its name: lowercase, runs of
// non-alphanumerics collapsed to a single hyphen, no leading or trailing
// hyphen. Idempotent by construction.
func Slugify(name string) string {
	return slug.Make(name)
}
