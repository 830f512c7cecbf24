// Package snapshot persists normalized option chains so repeat runs
// can skip the remote fetch. The on-disk format is four key,value
// metadata lines, a blank separator, then the canonical chain as a
// Strike,Call_OI,Put_OI table.
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/dgnsrekt/maxpain/internal/chain"
	"github.com/dgnsrekt/maxpain/internal/source"
)

const (
	tableHeader     = "Strike,Call_OI,Put_OI"
	timestampLayout = "2006-01-02 15:04:05"

	plainExt      = ".csv"
	compressedExt = ".csv.zst"
)

// Store reads and writes option chain snapshots under a single
// directory. When compression is enabled new snapshots are written
// zstd-compressed; reads handle both forms regardless.
type Store struct {
	dir      string
	compress bool
	now      func() time.Time
}

func NewStore(dir string, compress bool) *Store {
	return &Store{dir: dir, compress: compress, now: time.Now}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Path returns where a snapshot for the ticker and expiration lives,
// honoring the store's compression setting.
func (s *Store) Path(ticker string, expiration time.Time) string {
	ext := plainExt
	if s.compress {
		ext = compressedExt
	}
	name := fmt.Sprintf("%s_%s_optionchain%s",
		strings.ToUpper(ticker), expiration.Format("20060102"), ext)
	return filepath.Join(s.dir, name)
}

// Find looks for an existing snapshot in either form.
func (s *Store) Find(ticker string, expiration time.Time) (string, bool) {
	base := fmt.Sprintf("%s_%s_optionchain",
		strings.ToUpper(ticker), expiration.Format("20060102"))
	for _, ext := range []string{plainExt, compressedExt} {
		path := filepath.Join(s.dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Write persists a snapshot atomically: the file is assembled under a
// temp name and renamed into place, so readers never observe a partial
// snapshot.
func (s *Store) Write(data *source.OptionData) (string, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	destPath := s.Path(data.Ticker, data.ExpirationDate)
	tmpPath := destPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	err = s.encode(f, data)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return destPath, nil
}

func (s *Store) encode(f *os.File, data *source.OptionData) error {
	var w io.Writer = f
	var zw *zstd.Encoder
	if s.compress {
		var err error
		zw, err = zstd.NewWriter(f)
		if err != nil {
			return err
		}
		w = zw
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Ticker,%s\n", data.Ticker)
	fmt.Fprintf(bw, "CurrentPrice,%s\n", formatFloat(data.CurrentPrice))
	fmt.Fprintf(bw, "ExpirationDate,%s\n", data.ExpirationDate.Format(source.DateLayout))
	fmt.Fprintf(bw, "DownloadTimestamp,%s\n", s.now().Format(timestampLayout))
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, tableHeader)
	for _, row := range data.Chain {
		fmt.Fprintf(bw, "%s,%d,%d\n", formatFloat(row.Strike), row.CallOI, row.PutOI)
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}

// Read loads a snapshot back into the normalized form. A snapshot that
// round-trips yields a chain identical to the one written.
func (s *Store) Read(path string) (*source.OptionData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, compressedExt) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening compressed snapshot: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return decode(r, path)
}

func decode(r io.Reader, path string) (*source.OptionData, error) {
	scanner := bufio.NewScanner(r)

	meta := make(map[string]string, 4)
	for i := 0; i < 4; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("snapshot %s: truncated metadata", filepath.Base(path))
		}
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ",")
		if !ok {
			return nil, fmt.Errorf("snapshot %s: malformed metadata line %d", filepath.Base(path), i+1)
		}
		meta[key] = value
	}

	currentPrice, err := strconv.ParseFloat(meta["CurrentPrice"], 64)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: bad CurrentPrice: %w", filepath.Base(path), err)
	}
	expiration, err := time.Parse(source.DateLayout, meta["ExpirationDate"])
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: bad ExpirationDate: %w", filepath.Base(path), err)
	}

	// Blank separator then table header.
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line != tableHeader {
			return nil, fmt.Errorf("snapshot %s: unexpected table header %q", filepath.Base(path), line)
		}
		break
	}

	var rows chain.Chain
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("snapshot %s: malformed row %q", filepath.Base(path), line)
		}
		strike, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: bad strike %q", filepath.Base(path), fields[0])
		}
		callOI, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: bad call OI %q", filepath.Base(path), fields[1])
		}
		putOI, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: bad put OI %q", filepath.Base(path), fields[2])
		}
		rows = append(rows, chain.Row{Strike: strike, CallOI: callOI, PutOI: putOI})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := chain.Validate(rows); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", filepath.Base(path), err)
	}

	return &source.OptionData{
		Ticker:         meta["Ticker"],
		CurrentPrice:   currentPrice,
		ExpirationDate: expiration,
		Chain:          rows,
	}, nil
}

// formatFloat renders a float with the shortest representation that
// parses back exactly, so snapshots round-trip bit for bit.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
