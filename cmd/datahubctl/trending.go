package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	trendingMetric string
	trendingPeriod string
	trendingLimit  int
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show trending datasets",
	RunE:  runTrending,
}

func init() {
	trendingCmd.Flags().StringVar(&trendingMetric, "metric", "score", "Ranking metric: views, downloads, score or score_v2")
	trendingCmd.Flags().StringVar(&trendingPeriod, "period", "week", "Window: day, week or month")
	trendingCmd.Flags().IntVar(&trendingLimit, "limit", 10, "Maximum entries to show")
}

func runTrending(cmd *cobra.Command, args []string) error {
	client := newClient()
	var result struct {
		Metric  string `json:"metric"`
		Period  string `json:"period"`
		Entries []struct {
			DatasetID uint    `json:"dataset_id"`
			Title     string  `json:"title"`
			DOI       string  `json:"doi"`
			Views     int64   `json:"views"`
			Downloads int64   `json:"downloads"`
			Score     float64 `json:"score"`
		} `json:"entries"`
	}
	path := fmt.Sprintf("/explore/trending?metric=%s&period=%s&limit=%d",
		trendingMetric, trendingPeriod, trendingLimit)
	if err := client.getJSON(path, &result); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(result)
	}

	headers := []string{"Rank", "ID", "Title", "Views", "Downloads", "Score"}
	rows := make([][]string, 0, len(result.Entries))
	for i, e := range result.Entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatUint(uint64(e.DatasetID), 10),
			truncate(e.Title, 40),
			strconv.FormatInt(e.Views, 10),
			strconv.FormatInt(e.Downloads, 10),
			strconv.FormatFloat(e.Score, 'f', 1, 64),
		})
	}
	printTable(headers, rows)
	return nil
}
