package mirror

import (
	"ehonhub/pkg/models"
)

// ItemFromArticle converts a fetched article back into fixture form.
func ItemFromArticle(a models.RawArticle) Item {
	return Item{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Body:        a.Body,
		LikesCount:  a.LikeCount,
		StocksCount: a.StockCount,
	}
}

// VolumeFromMeta converts catalog metadata into fixture form.
func VolumeFromMeta(id string, m models.VolumeMeta, lang string) Volume {
	v := Volume{
		ID: id,
		VolumeInfo: VolumeInfo{
			Title:      m.Title,
			Categories: m.Categories,
			Language:   lang,
		},
	}
	if m.ISBN13 != "" {
		v.VolumeInfo.IndustryIdentifiers = []Identifier{{Type: "ISBN_13", Identifier: m.ISBN13}}
	}
	if m.Thumbnail != "" {
		v.VolumeInfo.ImageLinks = &ImageLinks{Thumbnail: m.Thumbnail}
	}
	return v
}
