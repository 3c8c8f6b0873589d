package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// DirSource reads raw filing payload files dropped into an inbox directory by
// the crawler. Each *.json file holds an array of filings. Consumed files are
// moved to done/ once the run completes.
type DirSource struct {
	Dir string

	consumed []string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Name() string { return "inbox:" + s.Dir }

func (s *DirSource) FetchFilings(ctx context.Context) ([]model.RawFiling, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, e.Name()))
	}
	sort.Strings(paths)

	var all []model.RawFiling
	s.consumed = s.consumed[:0]
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var filings []model.RawFiling
		if err := json.Unmarshal(data, &filings); err != nil {
			// A corrupt inbox file is skipped, not fatal; the crawler can re-drop it.
			log.Printf("[WARN] skip malformed inbox file %s: %v", path, err)
			continue
		}
		all = append(all, filings...)
		s.consumed = append(s.consumed, path)
	}
	return all, nil
}

// Complete moves the files consumed by the last fetch into done/.
func (s *DirSource) Complete() error {
	if len(s.consumed) == 0 {
		return nil
	}
	doneDir := filepath.Join(s.Dir, "done")
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return fmt.Errorf("create done dir: %w", err)
	}
	for _, path := range s.consumed {
		dst := filepath.Join(doneDir, filepath.Base(path))
		if err := os.Rename(path, dst); err != nil {
			return fmt.Errorf("move %s: %w", path, err)
		}
	}
	log.Printf("[INFO] moved %d processed inbox files to %s", len(s.consumed), doneDir)
	s.consumed = nil
	return nil
}
