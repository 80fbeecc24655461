package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ehonhub/internal/app"
	"ehonhub/pkg/models"
)

var (
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored ranking to a CSV or JSON file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "data/ranking.csv", "output path")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or json (default from --out extension)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Read(cmd.Context())
	if err != nil {
		return err
	}

	format := exportFormat
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(exportOut), ".")
	}
	switch format {
	case "json":
		err = writeJSON(exportOut, snap)
	case "csv":
		err = writeCSV(exportOut, snap.Ranking)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d books to %s\n", len(snap.Ranking), exportOut)
	return nil
}

func writeJSON(path string, snap models.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, books []models.BookAggregate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"rank", "id", "title", "isbn", "asin", "mentions", "total_likes", "total_stocks", "score", "source_ids",
	}); err != nil {
		return err
	}
	for i, b := range books {
		ids := make([]string, 0, len(b.Sources))
		for _, s := range b.Sources {
			ids = append(ids, s.ArticleID)
		}
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			b.ID,
			b.Title,
			b.ISBN,
			b.ASIN,
			strconv.Itoa(b.Mentions),
			strconv.Itoa(b.TotalLikes),
			strconv.Itoa(b.TotalStocks),
			strconv.FormatFloat(b.Score, 'f', -1, 64),
			strings.Join(ids, ","),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
