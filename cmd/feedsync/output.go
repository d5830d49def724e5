package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/usecase"
)

// progressSink prints sync events as prefixed lines
func progressSink(w io.Writer) domain.LogSink {
	return func(message string, level domain.LogLevel) {
		prefix := "  "
		switch level {
		case domain.LevelSuccess:
			prefix = "✓ "
		case domain.LevelWarn:
			prefix = "! "
		case domain.LevelError:
			prefix = "✗ "
		}
		_, _ = fmt.Fprintln(w, prefix+message)
	}
}

func printSummary(w io.Writer, s *domain.SyncSummary) error {
	rows := [][]string{
		{"Run", s.RunID},
		{"Status", string(s.Status)},
		{"Options", usecase.DescribeOptions(s.Options)},
		{"Created", strconv.Itoa(s.CreatedCount)},
		{"Updated", strconv.Itoa(s.UpdatedCount)},
		{"Skipped", strconv.Itoa(s.SkippedCount)},
		{"Errors", strconv.Itoa(s.ErrorCount)},
		{"Duration", (time.Duration(s.DurationSeconds * float64(time.Second))).Round(time.Millisecond).String()},
	}
	if s.Error != "" {
		rows = append(rows, []string{"Failure", s.Error})
	}
	return renderTable(w, []string{"Field", "Value"}, rows)
}

func printRuns(w io.Writer, runs []domain.SyncSummary) error {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			string(r.Status),
			usecase.DescribeOptions(r.Options),
			strconv.Itoa(r.CreatedCount),
			strconv.Itoa(r.UpdatedCount),
			strconv.Itoa(r.SkippedCount),
			strconv.Itoa(r.ErrorCount),
			fmt.Sprintf("%.1fs", r.DurationSeconds),
		})
	}
	return renderTable(w, []string{"Started", "Status", "Options", "Created", "Updated", "Skipped", "Errors", "Duration"}, rows)
}

func printStats(w io.Writer, url string, s *domain.FeedStats) error {
	return renderTable(w, []string{"Feed", "Products", "Variants"}, [][]string{
		{url, strconv.Itoa(s.ProductCount), strconv.Itoa(s.VariantCount)},
	})
}

func printStatus(w io.Writer, s *usecase.ConnectionStatus) error {
	feedDetail := s.Feed.Error
	if s.Feed.Stats != nil {
		feedDetail = fmt.Sprintf("%d products, %d variants", s.Feed.Stats.ProductCount, s.Feed.Stats.VariantCount)
	}
	shopDetail := s.Shop.Error
	if s.Shop.Shop != nil {
		shopDetail = fmt.Sprintf("%s (%d products)", s.Shop.Shop.Name, s.Shop.Shop.ProductCount)
	}

	return renderTable(w, []string{"Target", "OK", "Detail"}, [][]string{
		{"feed", strconv.FormatBool(s.Feed.OK), feedDetail},
		{"shop", strconv.FormatBool(s.Shop.OK), shopDetail},
	})
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w)

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	table.Header(header...)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}
