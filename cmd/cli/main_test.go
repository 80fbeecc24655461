package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehonhub/pkg/models"
)

func sampleBooks() []models.BookAggregate {
	return []models.BookAggregate{
		{
			ID: "isbn:9784834000825", Title: "ぐりとぐら", ISBN: "9784834000825", ASIN: "4834000826",
			Mentions: 2, TotalLikes: 10, TotalStocks: 5, Score: 11,
			Sources: []models.Source{{ArticleID: "a1"}, {ArticleID: "a2"}},
		},
		{ID: "title:どうぶつ絵本", Title: "どうぶつ絵本", Mentions: 2, TotalLikes: 3, Score: 3},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "ranking.csv")
	require.NoError(t, writeCSV(path, sampleBooks()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "rank", rows[0][0])
	assert.Equal(t, []string{"1", "isbn:9784834000825", "ぐりとぐら", "9784834000825", "4834000826", "2", "10", "5", "11", "a1,a2"}, rows[1])
	assert.Equal(t, "", rows[2][3])
}

func TestPrintRankingLimit(t *testing.T) {
	var buf bytes.Buffer
	snap := models.Snapshot{BuildID: "b-1", Mode: "full", GeneratedAt: time.Now(), Ranking: sampleBooks()}
	require.NoError(t, printRanking(&buf, snap, 1))

	out := buf.String()
	assert.Contains(t, out, "ぐりとぐら")
	assert.NotContains(t, out, "どうぶつ絵本")
	assert.Contains(t, out, "2 books")
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://ehon.example.com", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://ehon.example.com/ws", u)

	u, err = websocketURL("http://localhost:8080", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
}
