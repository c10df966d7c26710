// Package span locates evidence in narrative text.
//
// Literal search (FindAll) and pattern search (Family.FindAll) both return
// Match values whose offsets are byte offsets into the original text, so
// callers can always slice the input to recover the quoted evidence.
package span

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match is one located occurrence: Text == haystack[Start:End]
type Match struct {
	Text     string
	Start    int
	End      int
	Category string // Pattern family that produced the match (empty for literal search)
}

// Len returns the byte length of the match
func (m Match) Len() int {
	return m.End - m.Start
}

// Contains reports whether o lies fully inside m
func (m Match) Contains(o Match) bool {
	return o.Start >= m.Start && o.End <= m.End
}

// FindAll returns every case-insensitive literal occurrence of needle in haystack.
// Occurrences may overlap: the search resumes one byte after the previous start.
// An empty needle yields no matches.
func FindAll(haystack, needle string) []Match {
	if needle == "" || haystack == "" {
		return nil
	}

	lowerNeedle, _ := fold(needle)
	lowerHay, offsets := fold(haystack)

	var out []Match
	from := 0
	for from <= len(lowerHay) {
		idx := strings.Index(lowerHay[from:], lowerNeedle)
		if idx < 0 {
			break
		}
		ls := from + idx
		le := ls + len(lowerNeedle)
		start, end := offsets[ls], offsets[le]
		out = append(out, Match{
			Text:  haystack[start:end],
			Start: start,
			End:   end,
		})
		from = ls + 1
	}
	return out
}

// fold lower-cases s rune by rune and returns, for every byte of the folded
// string (plus one past the end), the byte offset of the originating rune in s.
// Lower-casing can change the UTF-8 width of a rune, so offsets into the folded
// string cannot be used on s directly.
func fold(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)

	var buf [utf8.UTFMax]byte
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && width == 1 {
			// Invalid byte: keep it verbatim
			b.WriteByte(s[i])
			offsets = append(offsets, i)
			i++
			continue
		}
		n := utf8.EncodeRune(buf[:], unicode.ToLower(r))
		b.Write(buf[:n])
		for k := 0; k < n; k++ {
			offsets = append(offsets, i)
		}
		i += width
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}

// Family is a named group of case-insensitive regular expressions
type Family struct {
	Category string
	Patterns []*regexp.Regexp
}

// NewFamily compiles exprs case-insensitively. Expressions are constants
// owned by the caller, so an invalid one panics at construction.
func NewFamily(category string, exprs ...string) *Family {
	f := &Family{Category: category}
	for _, expr := range exprs {
		f.Patterns = append(f.Patterns, regexp.MustCompile("(?i)"+expr))
	}
	return f
}

// FindAll returns every pattern match in text, tagged with the family
// category and deduplicated.
func (f *Family) FindAll(text string) []Match {
	if f == nil || text == "" {
		return nil
	}
	var matches []Match
	for _, re := range f.Patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Text:     text[loc[0]:loc[1]],
				Start:    loc[0],
				End:      loc[1],
				Category: f.Category,
			})
		}
	}
	return Dedupe(matches)
}

// MatchString reports whether any pattern in the family matches text
func (f *Family) MatchString(text string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.Patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
