package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/chain"
)

// cboePriceMarker distinguishes the metadata line carrying the company
// label and last price in a CBOE delayed-quote csv export.
const cboePriceMarker = "Last:"

// cboe expiration column cells show up in more than one format
// depending on export vintage.
var cboeDateLayouts = []string{
	DateLayout,
	"Mon Jan 2 2006",
	"01/02/2006",
}

// CBOEConfig configures the file-based adapter.
type CBOEConfig struct {
	// DataDir holds previously exported CBOE option chain csv files.
	DataDir string
}

// CBOEAdapter normalizes CBOE delayed-quote csv exports. The raw file
// carries a metadata line with the company label and last price, then
// the tabular option chain two lines later. Call-side and put-side
// open interest share a column name and are told apart by occurrence
// order.
type CBOEAdapter struct {
	dataDir  string
	strategy Strategy
	logger   *zap.Logger
}

// NewCBOEAdapter builds the file-based adapter.
func NewCBOEAdapter(cfg CBOEConfig, strategy Strategy, logger *zap.Logger) *CBOEAdapter {
	return &CBOEAdapter{
		dataDir:  cfg.DataDir,
		strategy: strategy,
		logger:   logger,
	}
}

// FetchOptionData loads and normalizes the csv export for a ticker.
func (a *CBOEAdapter) FetchOptionData(ctx context.Context, ticker string, spec ExpirationSpec) (*OptionData, error) {
	path, err := a.findCSV(ticker)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loading cboe export", zap.String("ticker", ticker), zap.String("file", path))

	data, err := a.parseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	// A csv export carries a single expiration; an exact request for a
	// different date cannot be satisfied from this file.
	if a.strategy == StrategyExact && !spec.NextMonthly && !data.ExpirationDate.IsZero() &&
		!sameDate(data.ExpirationDate, spec.Date) {
		return nil, fmt.Errorf("%w: file %s holds expiration %s, requested %s",
			ErrExpirationResolution, filepath.Base(path),
			data.ExpirationDate.Format(DateLayout), spec.Date.Format(DateLayout))
	}

	if err := chain.Validate(data.Chain); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	a.logger.Info("normalized cboe chain",
		zap.String("ticker", data.Ticker),
		zap.Int("strikes", len(data.Chain)),
		zap.Float64("current_price", data.CurrentPrice),
	)
	return data, nil
}

// AvailableExpirations scans the data directory for the ticker's
// exports and reports the expiration each one holds.
func (a *CBOEAdapter) AvailableExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	files, err := a.matchingFiles(ticker)
	if err != nil || len(files) == 0 {
		return nil, nil
	}

	var expirations []time.Time
	for _, path := range files {
		data, err := a.parseFile(path)
		if err != nil {
			a.logger.Warn("skipping unparsable export", zap.String("file", path), zap.Error(err))
			continue
		}
		if !data.ExpirationDate.IsZero() {
			expirations = append(expirations, data.ExpirationDate)
		}
	}
	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })
	return expirations, nil
}

func (a *CBOEAdapter) matchingFiles(ticker string) ([]string, error) {
	entries, err := os.ReadDir(a.dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: data directory %s unreadable", ErrDataNotFound, a.dataDir)
	}

	needle := strings.ToLower(ticker)
	var files []string
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if !e.IsDir() && strings.HasSuffix(name, ".csv") && strings.Contains(name, needle) {
			files = append(files, filepath.Join(a.dataDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (a *CBOEAdapter) findCSV(ticker string) (string, error) {
	files, err := a.matchingFiles(ticker)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no cboe csv for %s in %s", ErrDataNotFound, ticker, a.dataDir)
	}
	return files[0], nil
}

func (a *CBOEAdapter) parseFile(path string) (*OptionData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataNotFound, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")

	markerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, cboePriceMarker) {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		return nil, fmt.Errorf("%w: missing %q price line", ErrMalformedSource, cboePriceMarker)
	}

	ticker, currentPrice, err := parseCBOEMarkerLine(lines[markerIdx])
	if err != nil {
		return nil, err
	}

	// Tabular body starts two lines after the marker: header row first.
	headerIdx := markerIdx + 2
	if headerIdx >= len(lines) {
		return nil, fmt.Errorf("%w: no option table after price line", ErrMalformedSource)
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: option table empty", ErrMalformedSource)
	}

	cols, err := locateCBOEColumns(records[0])
	if err != nil {
		return nil, err
	}

	expiration := parseCBOEExpiration(records[1], cols.expiration)

	rows := make(chain.Chain, 0, len(records)-1)
	for _, record := range records[1:] {
		if cols.strike >= len(record) {
			continue
		}
		strike, ok := parseNumericCell(record[cols.strike])
		if !ok || strike <= 0 {
			// Unparsable or non-positive strike drops the row.
			continue
		}
		rows = append(rows, chain.Row{
			Strike: strike,
			CallOI: parseOICell(record, cols.callOI),
			PutOI:  parseOICell(record, cols.putOI),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })

	return &OptionData{
		Ticker:         ticker,
		CurrentPrice:   currentPrice,
		ExpirationDate: expiration,
		Chain:          rows,
	}, nil
}

// parseCBOEMarkerLine extracts ticker and last price from the metadata
// line, e.g. `NVDA Inc,Last: 182.50,Change: -1.20`.
func parseCBOEMarkerLine(line string) (ticker string, price float64, err error) {
	parts := strings.Split(strings.TrimSpace(line), ",")

	label := strings.Fields(parts[0])
	if len(label) == 0 {
		return "", 0, fmt.Errorf("%w: empty company label on price line", ErrMalformedSource)
	}
	ticker = strings.ToUpper(label[0])

	if len(parts) < 2 {
		return "", 0, fmt.Errorf("%w: price line has no last price field", ErrMalformedSource)
	}
	priceStr := strings.TrimSpace(strings.ReplaceAll(parts[1], cboePriceMarker, ""))
	price, perr := strconv.ParseFloat(priceStr, 64)
	if perr != nil {
		return "", 0, fmt.Errorf("%w: unparsable last price %q", ErrMalformedSource, priceStr)
	}
	return ticker, price, nil
}

type cboeColumns struct {
	strike     int
	callOI     int
	putOI      int
	expiration int // -1 when absent
}

// locateCBOEColumns maps header names to indices. The export repeats
// "Open Interest" for the call and put sides: the first occurrence is
// the call side, the second the put side. A suffixed rename of the
// duplicate ("Open Interest.1") takes precedence when present.
func locateCBOEColumns(header []string) (cboeColumns, error) {
	cols := cboeColumns{strike: -1, callOI: -1, putOI: -1, expiration: -1}

	var oiOccurrences []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == "Strike":
			if cols.strike < 0 {
				cols.strike = i
			}
		case name == "Expiration Date":
			if cols.expiration < 0 {
				cols.expiration = i
			}
		case name == "Open Interest.1":
			cols.putOI = i
		case strings.Contains(name, "Open Interest"):
			oiOccurrences = append(oiOccurrences, i)
		}
	}

	if cols.strike < 0 {
		return cols, fmt.Errorf("%w: missing Strike column", ErrMalformedSource)
	}
	if len(oiOccurrences) > 0 {
		cols.callOI = oiOccurrences[0]
	}
	if cols.putOI < 0 && len(oiOccurrences) > 1 {
		cols.putOI = oiOccurrences[1]
	}
	if cols.callOI < 0 || cols.putOI < 0 {
		return cols, fmt.Errorf("%w: could not locate call and put Open Interest columns", ErrMalformedSource)
	}
	return cols, nil
}

func parseCBOEExpiration(firstRow []string, col int) time.Time {
	if col < 0 || col >= len(firstRow) {
		return time.Time{}
	}
	cell := strings.TrimSpace(firstRow[col])
	for _, layout := range cboeDateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseNumericCell parses a cell that may carry thousands separators.
func parseNumericCell(cell string) (float64, bool) {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseOICell coerces an open interest cell; missing or non-numeric
// open interest defaults to zero.
func parseOICell(record []string, col int) int64 {
	if col < 0 || col >= len(record) {
		return 0
	}
	v, ok := parseNumericCell(record[col])
	if !ok {
		return 0
	}
	// Negative open interest is malformed, not missing; it flows into
	// chain validation and fails the fetch there.
	return int64(v)
}
