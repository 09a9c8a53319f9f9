package statefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

// Store 持仓状态写入单个 JSON 文件，先写临时文件再 rename
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load 文件不存在时返回空持仓
func (s *Store) Load(ctx context.Context) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewBook(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}
	book := model.NewBook()
	if len(b) == 0 {
		return book, nil
	}
	if err := json.Unmarshal(b, &book); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	for sym, h := range book {
		if !h.Qty.IsPositive() {
			delete(book, sym)
		}
	}
	return book, nil
}

func (s *Store) Save(ctx context.Context, book model.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

var _ port.StateStore = (*Store)(nil)
