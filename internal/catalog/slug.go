package catalog

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug derives a content key from a label: accents stripped, lower case,
// runs of anything that is not a letter or digit collapsed to "-".
// "Saudação inicial" becomes "saudacao-inicial". A label with no letters
// or digits gets "topic-" plus the head of a name-based UUID of the label,
// so the key is never empty and stays stable across loads.
func Slug(label string) TopicID {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, label)
	if err != nil {
		plain = label
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		sum := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.TrimSpace(label)))
		slug = "topic-" + sum.String()[:8]
	}
	return TopicID(slug)
}
