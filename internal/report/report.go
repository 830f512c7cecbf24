// Package report renders batch results to csv, json and html files
// under a per-format subdirectory of the output directory.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/maxpain"
)

// Entry is one report row: the result plus the top-N highlight flag.
type Entry struct {
	maxpain.Result
	IsTopN bool `json:"is_top_n"`
}

type document struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id"`
	Count       int       `json:"count"`
	Results     []Entry   `json:"results"`
}

// Writer renders reports. Sort key and top-N count come from config.
type Writer struct {
	outputDir string
	sortBy    string
	topN      int
	logger    *zap.Logger
	now       func() time.Time
}

func NewWriter(outputDir, sortBy string, topN int, logger *zap.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		sortBy:    sortBy,
		topN:      topN,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate writes one report per requested format and returns the
// generated paths keyed by format.
func (w *Writer) Generate(results []*maxpain.Result, formats []string, runID string) (map[string]string, error) {
	entries := w.prepare(results)
	doc := document{
		GeneratedAt: w.now(),
		RunID:       runID,
		Count:       len(entries),
		Results:     entries,
	}

	generated := make(map[string]string, len(formats))
	for _, format := range formats {
		var (
			path string
			err  error
		)
		switch format {
		case "csv":
			path, err = w.writeCSV(doc)
		case "json":
			path, err = w.writeJSON(doc)
		case "html":
			path, err = w.writeHTML(doc)
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return generated, fmt.Errorf("generating %s report: %w", format, err)
		}
		w.logger.Info("report written", zap.String("format", format), zap.String("path", path))
		generated[format] = path
	}
	return generated, nil
}

// prepare sorts the results and flags the top N rows.
func (w *Writer) prepare(results []*maxpain.Result) []Entry {
	sorted := make([]*maxpain.Result, len(results))
	copy(sorted, results)

	switch w.sortBy {
	case "ticker":
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ticker < sorted[j].Ticker })
	case "pct_change":
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].PctChange < sorted[j].PctChange })
	default: // net_premium: largest absolute imbalance first
		sort.Slice(sorted, func(i, j int) bool {
			return math.Abs(sorted[i].NetPremium) > math.Abs(sorted[j].NetPremium)
		})
	}

	entries := make([]Entry, len(sorted))
	for i, r := range sorted {
		entries[i] = Entry{Result: *r, IsTopN: i < w.topN}
	}
	return entries
}

func (w *Writer) outputPath(format, extension string) (string, error) {
	dir := filepath.Join(w.outputDir, format)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_max_pain_report.%s", w.now().Format("2006-01-02"), extension)
	return filepath.Join(dir, name), nil
}

// csvHeader is the stable field order of the result contract.
var csvHeader = []string{
	"Ticker", "Expiration_Date", "Current_Price", "Max_Pain_Price",
	"Pct_Change", "Net_Premium", "Premium_Bias",
	"Total_Call_OI", "Total_Put_OI", "Min_Payout", "Computed_At",
}

func (w *Writer) writeCSV(doc document) (string, error) {
	path, err := w.outputPath("csv", "csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return "", err
	}
	for _, e := range doc.Results {
		record := []string{
			e.Ticker,
			e.ExpirationDate,
			formatMoney(e.CurrentPrice),
			formatMoney(e.MaxPainPrice),
			strconv.FormatFloat(e.PctChange, 'f', 2, 64),
			formatMoney(e.NetPremium),
			string(e.PremiumBias),
			strconv.FormatInt(e.TotalCallOI, 10),
			strconv.FormatInt(e.TotalPutOI, 10),
			formatMoney(e.MinPayout),
			e.ComputedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(record); err != nil {
			return "", err
		}
	}
	cw.Flush()
	return path, cw.Error()
}

func (w *Writer) writeJSON(doc document) (string, error) {
	path, err := w.outputPath("json", "json")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return path, enc.Encode(doc)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
