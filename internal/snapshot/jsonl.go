package snapshot

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Export writes the stored documents of collection to path, one JSON object
// per line, ordered by identity. The file is replaced atomically.
func (s *Store) Export(ctx context.Context, collection, path string) (int, error) {
	lines, err := s.documents(ctx, collection)
	if err != nil {
		return 0, err
	}
	if err := writeJSONL(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// Import replaces the snapshot of collection with the documents in a JSONL
// file. Blank lines and lines that are not JSON objects are skipped.
func (s *Store) Import(ctx context.Context, collection string, kind *record.Kind, path string) (Info, error) {
	docs, skipped, err := readJSONL(path)
	if err != nil {
		return Info{}, err
	}
	if skipped > 0 {
		s.log.Warnw("Skipped malformed lines", "path", path, "lines", skipped)
	}
	st := service.NewState()
	for _, doc := range docs {
		st = st.Set(kind.New(doc))
	}
	return s.Save(ctx, collection, st)
}

func (s *Store) documents(ctx context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, ErrDetached
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM records WHERE collection = ? ORDER BY record_id`, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, []byte(raw))
	}
	return out, rows.Err()
}

func readJSONL(path string) ([]types.Document, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		docs    []types.Document
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc types.Document
		if err := json.Unmarshal(line, &doc); err != nil || doc == nil {
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return docs, skipped, nil
}

// writeJSONL writes lines to a temp file next to path, syncs it, and renames
// it over path.
func writeJSONL(path string, lines [][]byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err = w.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err = w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
