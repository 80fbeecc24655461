// Package classify holds the lexical gates that keep non-picture-book
// content out of the ranking. Precision matters more than recall here.
package classify

import (
	"regexp"
	"strings"
)

// DefaultPositive are words that signal a children's / picture-book context.
var DefaultPositive = []string{
	"絵本", "えほん", "児童", "幼児", "赤ちゃん", "読み聞かせ", "保育", "未就学", "園児",
	"子ども", "こども", "ピクチャーブック", "picture book",
}

// DefaultNegative are words that mark business, academic or technical noise.
var DefaultNegative = []string{
	"白書", "年鑑", "統計", "論文", "参考書", "問題集", "研究", "業務", "仕様書", "設計書",
	"教科書", "入門", "検定", "資格", "国家試験", "ビジネス", "投資",
	"whitepaper", "statistics", "exam guide",
	"laravel", "django", "ruby on rails", "spring boot", "kubernetes",
}

// Classifier decides whether an article talks about picture books.
type Classifier struct {
	Positive []string
	Negative []string
}

// Default returns a classifier with the built-in lexicons.
func Default() Classifier {
	return Classifier{Positive: DefaultPositive, Negative: DefaultNegative}
}

// IsBookContext reports true iff text contains at least one positive word and
// no negative word. Matching is a case-insensitive substring test.
func (c Classifier) IsBookContext(text string) bool {
	low := strings.ToLower(text)
	return containsAny(low, c.Positive) && !containsAny(low, c.Negative)
}

// IsBookContext runs the default classifier.
func IsBookContext(text string) bool {
	return Default().IsBookContext(text)
}

func containsAny(low string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(low, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

var (
	// bannedTitleRE rejects quoted strings that are UI labels or tech jargon
	// rather than book titles. ASCII words only match as whole words.
	bannedTitleRE = regexp.MustCompile(`(?i)(ログイン|トップページ|管理画面|設定|一覧|検索条件|サンプル|チュートリアル|テンプレ|ダッシュボード|デモ|テスト|アプリ|ページ|エンジニア|アジャイル|アルゴリズム|\b(?:API|SQL|AWS|Docker|Laravel|Rails|React|Next\.js|Java|Kotlin|Python|Go|TypeScript)\b)`)

	titleMarkerRE = regexp.MustCompile(`(絵本|えほん|児童|幼児|赤ちゃん|読み聞かせ|図鑑|紙芝居|しかけ絵本)`)

	childrenCategoryRE = regexp.MustCompile(`(?i)(絵本|児童|Children's Books|Picture Books|Baby|Toddler|Juvenile)`)
)

// IsBannedTitle reports whether a title candidate looks like UI or tech noise.
func IsBannedTitle(title string) bool {
	return bannedTitleRE.MatchString(title)
}

// HasTitleMarker reports whether a title itself carries a picture-book word.
func HasTitleMarker(title string) bool {
	return titleMarkerRE.MatchString(title)
}

// FilterTitles drops banned candidates, keeping order.
func FilterTitles(titles []string) []string {
	out := titles[:0:0]
	for _, t := range titles {
		if !IsBannedTitle(t) {
			out = append(out, t)
		}
	}
	return out
}

// IsChildrensCategory reports whether any bibliographic category string
// belongs to the children's / picture-book family.
func IsChildrensCategory(categories []string) bool {
	if len(categories) == 0 {
		return false
	}
	return childrenCategoryRE.MatchString(strings.Join(categories, " / "))
}
