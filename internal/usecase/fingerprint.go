package usecase

import (
	"strconv"
	"strings"

	"mensajemagico/internal/domain"
)

// Fingerprint derives the cache key of a request. Shaping fields are taken in
// a fixed order, lower-cased, trimmed, with inner whitespace runs collapsed to
// "-". Fields are joined with "|" and context words with "+", keeping their
// order. Separator runes inside values are escaped with a backslash so
// distinct requests never share a key. Identity fields (user, contact,
// location) do not shape the text and are left out so the cache is shared
// across them.
func Fingerprint(req domain.GenerationRequest) string {
	words := make([]string, 0, len(req.ContextWords))
	for _, w := range req.ContextWords {
		if n := canonical(w); n != "" {
			words = append(words, n)
		}
	}

	health := ""
	if req.RelationalHealth != 0 {
		health = strconv.Itoa(req.RelationalHealth)
	}

	fields := []string{
		canonical(req.Occasion),
		canonical(req.Relationship),
		canonical(string(req.Tone)),
		canonical(req.ReceivedText),
		strings.Join(words, "+"),
		canonical(req.FormatInstruction),
		canonical(req.StyleInstructions),
		canonical(req.CreativityLevel),
		canonical(req.AvoidTopics),
		canonical(req.Intention),
		health,
		canonical(req.GrammaticalGender),
		canonical(req.GreetingMoment),
		canonical(req.ApologyReason),
	}
	return strings.Join(fields, "|")
}

var separatorEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "+", `\+`, "-", `\-`)

func canonical(s string) string {
	return strings.Join(strings.Fields(separatorEscaper.Replace(strings.ToLower(s))), "-")
}
