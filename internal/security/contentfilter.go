package security

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Pattern group names, in evaluation order.
const (
	GroupProfanity      = "profanity"
	GroupDiscrimination = "discrimination"
	GroupViolenceSexual = "violence_sexual"
	GroupCustom         = "custom"
)

// Terms are written against normalized text: lower case, no diacritics,
// single spaces. Each entry is a regexp fragment.
var profanityTerms = []string{
	`put[ao]s?`,
	`mierdas?`,
	`jod(er|ete|id[oa]s?)`,
	`cabron(a|es|as)?`,
	`pendej[oa]s?`,
	`gilipollas`,
	`vergas?`,
	`chinga\w*`,
	`culer[oa]s?`,
	`fuck\w*`,
	`shit(s|ty|head)?`,
	`bitch(es)?`,
	`assholes?`,
}

var discriminationTerms = []string{
	`maricon(es)?`,
	`maricas?`,
	`negrat[ao]s?`,
	`sudacas?`,
	`retrasad[oa]s?`,
	`subnormal(es)?`,
	`faggots?`,
	`nigg(er|a)s?`,
	`trann(y|ies)`,
}

var violenceSexualTerms = []string{
	`te\s+voy\s+a\s+matar`,
	`matarte`,
	`muerete`,
	`suicidate`,
	`violar(te|la|lo)?`,
	`violacion`,
	`porno\w*`,
	`sexo\s+(anal|oral)`,
	`kill\s+you`,
	`rap(ed|ing|ists?)`,
	`nudes`,
}

// patternGroup holds two compilations of the same terms: re matches whole
// words in a text form, spelled matches anywhere inside a run of letters that
// was typed one by one ("y p u t a" glues to "yputa").
type patternGroup struct {
	name    string
	re      *regexp.Regexp
	spelled *regexp.Regexp
}

var defaultGroups = []patternGroup{
	newPatternGroup(GroupProfanity, profanityTerms),
	newPatternGroup(GroupDiscrimination, discriminationTerms),
	newPatternGroup(GroupViolenceSexual, violenceSexualTerms),
}

func newPatternGroup(name string, terms []string) patternGroup {
	alt := `(?:` + strings.Join(terms, "|") + `)`
	return patternGroup{
		name:    name,
		re:      regexp.MustCompile(`\b` + alt + `\b`),
		spelled: regexp.MustCompile(alt),
	}
}

// ContentFilter is a heuristic moderation check for user supplied text.
// It is stateless after construction and safe for concurrent use.
type ContentFilter struct {
	groups []patternGroup
}

// NewContentFilter returns a filter using the built-in pattern groups plus
// any extra literal terms (matched as whole words after normalization).
func NewContentFilter(extraTerms ...string) *ContentFilter {
	groups := append([]patternGroup(nil), defaultGroups...)

	var custom []string
	for _, term := range extraTerms {
		n := Normalize(term)
		if n == "" {
			continue
		}
		parts := strings.Fields(n)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		custom = append(custom, strings.Join(parts, `\s+`))
	}
	if len(custom) > 0 {
		groups = append(groups, newPatternGroup(GroupCustom, custom))
	}
	return &ContentFilter{groups: groups}
}

// IsOffensive reports whether text matches any pattern group.
// Empty input is never offensive.
func (f *ContentFilter) IsOffensive(text string) bool {
	_, ok := f.Match(text)
	return ok
}

// Match returns the name of the first pattern group that matches text.
func (f *ContentFilter) Match(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	forms, runs := variants(text)
	for _, g := range f.groups {
		for _, form := range forms {
			if g.re.MatchString(form) {
				return g.name, true
			}
		}
		for _, run := range runs {
			if g.spelled.MatchString(run) {
				return g.name, true
			}
		}
	}
	return "", false
}

// Normalize lower-cases text, strips diacritics, isolates every rune that is
// not a letter, digit or space with surrounding spaces, and collapses runs of
// whitespace.
func Normalize(text string) string {
	base := fold(text)
	var b strings.Builder
	b.Grow(len(base) + 8)
	for _, r := range base {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
		b.WriteRune(r)
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// fold lower-cases and removes combining marks.
func fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

// variants returns the forms a text is tested in: padded, with punctuation
// removed ("p-u-t-a" -> "puta"), and with punctuation turned into spaces and
// runs of single-letter tokens glued ("eres.una.m.i.e.r.d.a" -> "eres una
// mierda"). It also returns the glued runs on their own.
func variants(text string) ([]string, []string) {
	padded := Normalize(text)

	base := fold(text)
	var stripped, spaced strings.Builder
	for _, r := range base {
		switch {
		case isWordRune(r):
			stripped.WriteRune(r)
			spaced.WriteRune(r)
		case unicode.IsSpace(r):
			stripped.WriteRune(r)
			spaced.WriteByte(' ')
		default:
			spaced.WriteByte(' ')
		}
	}

	forms := []string{padded}
	add := func(form string) {
		if form != "" && !slices.Contains(forms, form) {
			forms = append(forms, form)
		}
	}
	add(strings.Join(strings.Fields(stripped.String()), " "))
	glued, runs := glueSingles(spaced.String())
	add(glued)
	return forms, runs
}

// minGlueRun is the shortest run of single-rune tokens that gets glued.
const minGlueRun = 3

// glueSingles joins runs of at least minGlueRun single-rune tokens and
// returns the rewritten text together with the glued runs.
func glueSingles(s string) (string, []string) {
	tokens := strings.Fields(s)
	out := make([]string, 0, len(tokens))
	var runs []string
	for i := 0; i < len(tokens); {
		j := i
		for j < len(tokens) && utf8.RuneCountInString(tokens[j]) == 1 {
			j++
		}
		if j-i >= minGlueRun {
			run := strings.Join(tokens[i:j], "")
			out = append(out, run)
			runs = append(runs, run)
			i = j
			continue
		}
		if j == i {
			j = i + 1
		}
		out = append(out, tokens[i:j]...)
		i = j
	}
	return strings.Join(out, " "), runs
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
