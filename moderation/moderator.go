// Package moderation censors user-submitted round and question text
// before it enters a session. Matching is Aho-Corasick over a normalized
// view of the input (lower-cased, leet speak folded, punctuation and
// spacing stripped) so "k-n0tt" still matches "knott".
package moderation

import (
	"bufio"
	"embed"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed censored/*.txt
var censoredFS embed.FS

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// New builds the automaton from the given censored words.
func New(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if norm := normalize([]rune(word)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, replacement: replacement}, nil
}

// NewDefault loads the word lists shipped with the binary.
func NewDefault(replacement rune) (*Moderator, error) {
	entries, err := censoredFS.ReadDir("censored")
	if err != nil {
		return nil, err
	}

	var words []string
	for _, entry := range entries {
		f, err := censoredFS.Open("censored/" + entry.Name())
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if word := strings.TrimSpace(scanner.Text()); word != "" {
				words = append(words, word)
			}
		}
		_ = f.Close()
	}
	return New(words, replacement)
}

// Censor replaces every span of the original text that matches a
// censored word, preserving spacing and punctuation around it.
func (m *Moderator) Censor(original string) string {
	origRunes := []rune(original)
	norm, origIdx := normalizeMapped(origRunes)
	if len(norm) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(norm, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}

	return string(origRunes)
}

// normalizeMapped produces the searchable view plus, for every normalized
// rune, the index of the original rune it came from.
func normalizeMapped(in []rune) ([]rune, []int) {
	norm := make([]rune, 0, len(in))
	origIdx := make([]int, 0, len(in))
	for i, r := range in {
		folded := foldLeet(r)
		if unicode.IsPunct(folded) || unicode.IsSpace(folded) || unicode.IsSymbol(folded) {
			continue
		}
		norm = append(norm, unicode.ToLower(folded))
		origIdx = append(origIdx, i)
	}
	return norm, origIdx
}

func normalize(in []rune) []rune {
	norm, _ := normalizeMapped(in)
	return norm
}

// foldLeet maps common leet substitutions back to their letters.
func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
