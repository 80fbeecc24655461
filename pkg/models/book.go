package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// BookReference is what the extractor pulls out of one article.
// Empty strings mean "not found".
type BookReference struct {
	ASIN   string   `json:"asin,omitempty"`
	ISBN   string   `json:"isbn,omitempty"`
	Titles []string `json:"titles,omitempty"`
}

// Empty reports whether the reference carries nothing usable.
func (r BookReference) Empty() bool {
	return r.ASIN == "" && r.ISBN == "" && len(r.Titles) == 0
}

// Candidate is a reference after metadata validation.
type Candidate struct {
	IdentityKey    string `json:"identity_key"`
	CanonicalTitle string `json:"canonical_title"`
	ISBN           string `json:"isbn,omitempty"`
	ASIN           string `json:"asin,omitempty"`
	Confirmed      bool   `json:"confirmed"`
	// TitleMarked is set when a title candidate carries a picture-book marker word.
	TitleMarked bool `json:"title_marked"`
}

// Source is one article contributing to a book.
type Source struct {
	ArticleID string `json:"qiita_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Likes     int    `json:"likes"`
	Stocks    int    `json:"stocks"`
}

// BookAggregate is the per-book bucket built during one ranking pass.
type BookAggregate struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ASIN        string   `json:"asin,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	Mentions    int      `json:"mentions"`
	TotalLikes  int      `json:"total_likes"`
	TotalStocks int      `json:"total_stocks"`
	Score       float64  `json:"score"`
	Sources     []Source `json:"sources"`
}

// Snapshot is the persisted output of one build.
type Snapshot struct {
	BuildID     string          `json:"build_id,omitempty"`
	Mode        string          `json:"mode,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	Ranking     []BookAggregate `json:"ranking"`
}

// VolumeMeta is the subset of bibliographic metadata the validator needs.
type VolumeMeta struct {
	Title      string   `json:"title"`
	ISBN13     string   `json:"isbn13,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
}

// Identity key prefixes, strongest first.
const (
	KeyPrefixISBN  = "isbn:"
	KeyPrefixASIN  = "asin:"
	KeyPrefixTitle = "title:"
)

// IdentityKey picks the dedup key: ISBN, then ASIN, then normalized title.
// ISBN and ASIN keys are never unified with each other.
func IdentityKey(isbn, asin, title string) string {
	switch {
	case isbn != "":
		return KeyPrefixISBN + isbn
	case asin != "":
		return KeyPrefixASIN + strings.ToUpper(asin)
	}
	if t := NormalizeTitle(title); t != "" {
		return KeyPrefixTitle + t
	}
	return ""
}

// PlaceholderTitle is the display title used when nothing better than an
// identifier is known.
func PlaceholderTitle(isbn, asin string) string {
	switch {
	case isbn != "":
		return "ISBN " + isbn
	case asin != "":
		return "ASIN " + strings.ToUpper(asin)
	}
	return ""
}

// NormalizeTitle converts a title to a canonical form: NFKC, lowercase,
// non-letter/digit runs collapsed to a single space.
func NormalizeTitle(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Empty reports whether no build has produced this snapshot yet.
func (s Snapshot) Empty() bool {
	return s.BuildID == "" && len(s.Ranking) == 0
}
