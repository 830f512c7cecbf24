package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/maxpain/internal/chain"
	"github.com/dgnsrekt/maxpain/internal/source"
)

func testData() *source.OptionData {
	return &source.OptionData{
		Ticker:         "NVDA",
		CurrentPrice:   182.53,
		ExpirationDate: time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
		Chain: chain.Chain{
			{Strike: 90, CallOI: 100, PutOI: 0},
			{Strike: 100.5, CallOI: 50, PutOI: 50},
			{Strike: 110, CallOI: 0, PutOI: 100},
		},
	}
}

func assertRoundTrip(t *testing.T, store *Store) {
	t.Helper()

	data := testData()
	path, err := store.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if loaded.Ticker != data.Ticker {
		t.Errorf("expected ticker %s, got %s", data.Ticker, loaded.Ticker)
	}
	if loaded.CurrentPrice != data.CurrentPrice {
		t.Errorf("expected price %g, got %g", data.CurrentPrice, loaded.CurrentPrice)
	}
	if !loaded.ExpirationDate.Equal(data.ExpirationDate) {
		t.Errorf("expected expiration %v, got %v", data.ExpirationDate, loaded.ExpirationDate)
	}

	if len(loaded.Chain) != len(data.Chain) {
		t.Fatalf("expected %d rows, got %d", len(data.Chain), len(loaded.Chain))
	}
	for i := range data.Chain {
		if loaded.Chain[i] != data.Chain[i] {
			t.Errorf("row %d: expected %+v, got %+v", i, data.Chain[i], loaded.Chain[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	assertRoundTrip(t, NewStore(t.TempDir(), false))
}

func TestRoundTripCompressed(t *testing.T) {
	store := NewStore(t.TempDir(), true)
	assertRoundTrip(t, store)

	path := store.Path("NVDA", testData().ExpirationDate)
	if !strings.HasSuffix(path, ".csv.zst") {
		t.Errorf("expected compressed extension, got %s", path)
	}
}

func TestFind(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	data := testData()

	if _, ok := store.Find("NVDA", data.ExpirationDate); ok {
		t.Fatal("expected no snapshot before write")
	}

	if _, err := store.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	path, ok := store.Find("NVDA", data.ExpirationDate)
	if !ok {
		t.Fatal("expected snapshot after write")
	}
	if filepath.Base(path) != "NVDA_20260918_optionchain.csv" {
		t.Errorf("unexpected snapshot name %s", filepath.Base(path))
	}

	// Find is case-insensitive on ticker input.
	if _, ok := store.Find("nvda", data.ExpirationDate); !ok {
		t.Error("expected lower-case lookup to match")
	}
}

func TestFindMatchesCompressedSnapshot(t *testing.T) {
	dir := t.TempDir()
	compressed := NewStore(dir, true)
	if _, err := compressed.Write(testData()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// A plain store still locates and reads the compressed file.
	plain := NewStore(dir, false)
	path, ok := plain.Find("NVDA", testData().ExpirationDate)
	if !ok {
		t.Fatal("expected to find compressed snapshot")
	}
	if _, err := plain.Read(path); err != nil {
		t.Errorf("reading compressed snapshot failed: %v", err)
	}
}

func TestWriteIsAtomic(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if _, err := store.Write(testData()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestReadRejectsInvalidChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BAD_20260918_optionchain.csv")
	content := "Ticker,BAD\nCurrentPrice,100\nExpirationDate,2026-09-18\nDownloadTimestamp,2026-08-23 10:00:00\n\nStrike,Call_OI,Put_OI\n100,5,5\n90,1,1\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(dir, false)
	if _, err := store.Read(path); err == nil {
		t.Error("expected error for out-of-order strikes")
	}
}
