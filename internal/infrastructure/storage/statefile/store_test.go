package statefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"tradepilot/internal/domain/model"
)

func TestStoreMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	book, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(book) != 0 {
		t.Errorf("expected empty book, got %v", book)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(path)
	ctx := context.Background()

	book := model.NewBook()
	book.ApplyFill("WETH", model.SideBuy, decimal.RequireFromString("0.3"), decimal.RequireFromString("3000.1"))
	book.Mark("WETH", decimal.RequireFromString("3100"))
	book["DUST"] = model.Holding{}

	if err := s.Save(ctx, book); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := got["DUST"]; ok {
		t.Error("empty holdings must be dropped on load")
	}
	h := got.Get("WETH")
	if !h.Qty.Equal(decimal.RequireFromString("0.3")) || !h.Cost.Equal(decimal.RequireFromString("900.03")) {
		t.Errorf("unexpected holding %+v", h)
	}
	if !h.TrailingHigh.Equal(decimal.NewFromInt(3100)) {
		t.Errorf("trailing high lost: %v", h.TrailingHigh)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path).Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}
