package tsv

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"selectcms/domain/core"
	"selectcms/domain/stats"
	"selectcms/internal"
	"selectcms/ports"
)

// Output layout under the run directory
const (
	StatsDirName = "stats_files"
	FinalDirName = "final_out"
	LociFileName = "significant_loci.tsv"
	CombinedName = "combined_windows.tsv"
)

// Store reads and writes the window stats and result files of one output
// directory.
type Store struct {
	root   string
	logger *internal.Logger
}

var (
	_ ports.WindowSink = (*Store)(nil)
	_ ports.LociWriter = (*Store)(nil)
)

// NewStore creates a store rooted at dir
func NewStore(dir string, logger *internal.Logger) *Store {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Store{root: dir, logger: logger}
}

// StatsDir returns the directory holding window stats files
func (s *Store) StatsDir() string { return filepath.Join(s.root, StatsDirName) }

// FinalDir returns the directory holding run-level results
func (s *Store) FinalDir() string { return filepath.Join(s.root, FinalDirName) }

// WriteWindow writes ws to its stats file, replacing an earlier version
func (s *Store) WriteWindow(ws *stats.WindowStats) (string, error) {
	return ReplaceFile(s.StatsDir(), WindowFileName(ws.Number, ws.Start, ws.End), func(w io.Writer) error {
		return WriteWindow(w, ws)
	})
}

// WriteLoci writes the significant loci under a fresh name
func (s *Store) WriteLoci(loci []stats.CompositeRecord) (string, error) {
	return CreateExclusive(s.FinalDir(), LociFileName, func(w io.Writer) error {
		return WriteRecords(w, loci)
	})
}

// WindowFiles lists the window stats files by window number. Two files for
// the same window number are a malformed-input error.
func (s *Store) WindowFiles() (map[int]string, error) {
	entries, err := os.ReadDir(s.StatsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFoundError("stats directory", s.StatsDir())
		}
		return nil, err
	}
	out := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, _, _, ok := ParseWindowFileName(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.StatsDir(), e.Name())
		if prev, dup := out[n]; dup {
			return nil, fmt.Errorf("%w: window %d has two stats files: %s and %s",
				core.ErrMalformedInput, n, filepath.Base(prev), e.Name())
		}
		out[n] = path
	}
	return out, nil
}

// ReadWindows loads every window stats file, ordered by window number
func (s *Store) ReadWindows() ([]*stats.WindowStats, error) {
	files, err := s.WindowFiles()
	if err != nil {
		return nil, err
	}
	numbers := make([]int, 0, len(files))
	for n := range files {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return s.readNumbered(files, numbers)
}

// ReadRange loads windows lo..hi inclusive. Missing windows are logged and
// skipped.
func (s *Store) ReadRange(lo, hi int) ([]*stats.WindowStats, error) {
	files, err := s.WindowFiles()
	if err != nil {
		return nil, err
	}
	var numbers []int
	for n := lo; n <= hi; n++ {
		if _, ok := files[n]; !ok {
			s.logger.Warn("could not find window number %d", n)
			continue
		}
		numbers = append(numbers, n)
	}
	return s.readNumbered(files, numbers)
}

func (s *Store) readNumbered(files map[int]string, numbers []int) ([]*stats.WindowStats, error) {
	out := make([]*stats.WindowStats, 0, len(numbers))
	for _, n := range numbers {
		ws, err := ReadWindow(files[n])
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}
