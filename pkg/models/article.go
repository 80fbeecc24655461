package models

// RawArticle is one search hit from the article platform. It is never
// mutated by the pipeline.
type RawArticle struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Body       string `json:"body,omitempty"`
	LikeCount  int    `json:"likes_count"`
	StockCount int    `json:"stocks_count"`
}

// Text is the string the classifier and extractor look at.
func (a RawArticle) Text() string {
	if a.Body == "" {
		return a.Title
	}
	return a.Title + "\n" + a.Body
}
