// Package extract pulls book identifiers and quoted title candidates out of
// free-form article text. Everything here is pure and never touches the network.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"ehonhub/pkg/models"
)

const (
	minTitleRunes = 2
	maxTitleRunes = 60
)

var (
	asinPathRE = regexp.MustCompile(`(?i)(?:/(?:dp|gp/product)/|[?&]asin=)([A-Z0-9]{10})`)
	asinBareRE = regexp.MustCompile(`\b[0-9A-Z]{10}\b`)

	isbn13RE      = regexp.MustCompile(`\b97[89]\d{10}\b`)
	isbnLabeledRE = regexp.MustCompile(`(?i)ISBN(?:-1[03])?[:：]?\s*([0-9](?:[- ]?[0-9]){8,16}(?:[- ]?[Xx])?)`)
)

// bracketPairs are the quote styles a title may be wrapped in.
var bracketPairs = map[rune]rune{
	'『': '』',
	'「': '」',
	'《': '》',
}

// Extractor holds the knobs for reference extraction. The zero value is the
// conservative default.
type Extractor struct {
	// ScanBareASIN enables the low-confidence fallback that accepts a
	// standalone 10-character token as an ASIN when no product path matched.
	ScanBareASIN bool
}

// Extract runs the default extractor.
func Extract(text string) models.BookReference {
	return Extractor{}.Extract(text)
}

// Extract returns every reference found in text. Missing pieces are left empty.
func (e Extractor) Extract(text string) models.BookReference {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return models.BookReference{
		ASIN:   e.asin(text),
		ISBN:   ISBN(text),
		Titles: Titles(text),
	}
}

func (e Extractor) asin(text string) string {
	if m := asinPathRE.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if !e.ScanBareASIN {
		return ""
	}
	for _, tok := range asinBareRE.FindAllString(text, -1) {
		if strings.HasPrefix(tok, "B0") || validISBN10(tok) {
			return tok
		}
	}
	return ""
}

// ISBN returns the first ISBN-13 in text. Bare 13-digit 978/979 runs win;
// otherwise an "ISBN"-labelled number is accepted when its checksum holds,
// with ISBN-10s promoted to ISBN-13.
func ISBN(text string) string {
	if m := isbn13RE.FindString(text); m != "" {
		return m
	}
	for _, m := range isbnLabeledRE.FindAllStringSubmatch(text, -1) {
		if isbn := labeledISBN(m[1]); isbn != "" {
			return isbn
		}
	}
	return ""
}

// labeledISBN reads an ISBN from the start of a hyphen- or space-separated
// digit run. The run may carry trailing digits from unrelated text (a price,
// a year), so only its 13- or 10-digit prefix is checked.
func labeledISBN(run string) string {
	digits := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(run))
	if strings.HasPrefix(digits, "978") || strings.HasPrefix(digits, "979") {
		if len(digits) >= 13 && validISBN13(digits[:13]) {
			return digits[:13]
		}
		if len(digits) != 10 {
			return ""
		}
	}
	if len(digits) >= 10 && validISBN10(digits[:10]) {
		return ISBN10To13(digits[:10])
	}
	return ""
}

// ISBN10To13 converts a checksum-valid ISBN-10 to its 978-prefixed ISBN-13.
// It returns "" when the input is not a valid ISBN-10.
func ISBN10To13(isbn10 string) string {
	isbn10 = strings.ToUpper(isbn10)
	if !validISBN10(isbn10) {
		return ""
	}
	body := "978" + isbn10[:9]
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check))
}

func validISBN10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case i == 9 && (c == 'X' || c == 'x'):
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

// Titles scans text for 『…』, 「…」 and 《…》 spans. A span never crosses a
// line break and never nests within its own style. Results are cleaned,
// length-filtered, deduplicated and kept in order of their opening bracket.
func Titles(text string) []string {
	runes := []rune(text)
	resume := make(map[rune]int, len(bracketPairs))
	seen := make(map[string]struct{})
	var out []string

	for i, r := range runes {
		closer, ok := bracketPairs[r]
		if !ok || i < resume[r] {
			continue
		}
		end, j := -1, i+1
		for ; j < len(runes); j++ {
			if runes[j] == '\n' || runes[j] == '\r' {
				break
			}
			if runes[j] == closer {
				end = j
				break
			}
		}
		if end < 0 {
			// no closer before j, so no later opener of this style before j has one
			resume[r] = j
			continue
		}
		resume[r] = end + 1

		cand := cleanTitle(string(runes[i+1 : end]))
		if !keepTitle(cand) {
			continue
		}
		if _, dup := seen[cand]; dup {
			continue
		}
		seen[cand] = struct{}{}
		out = append(out, cand)
	}
	return out
}

// cleanTitle drops a colon-introduced subtitle and one trailing parenthetical.
func cleanTitle(s string) string {
	if i := strings.IndexAny(s, ":："); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = trimTrailingParen(s, "（", "）")
	s = trimTrailingParen(s, "(", ")")
	return strings.TrimSpace(s)
}

func trimTrailingParen(s, open, close string) string {
	if !strings.HasSuffix(s, close) {
		return s
	}
	i := strings.LastIndex(s, open)
	if i < 0 {
		return s
	}
	return s[:i]
}

func keepTitle(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minTitleRunes || n > maxTitleRunes {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
