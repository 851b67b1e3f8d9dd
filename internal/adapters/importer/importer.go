// Package importer turns season JSON exports into match records and
// rosters. It accepts the canonical season layout, scraped team pages and
// published ranking files.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
	"github.com/okian/wrestlerank/pkg/logger"
)

// Result is everything read from one or more files. Matches are
// deduplicated by id, first occurrence wins.
type Result struct {
	Entities []model.Entity
	Matches  []model.MatchRecord
	Rankings []model.RankingResult
	Files    int
	// Skipped counts bouts that were not completed matches (byes,
	// unscheduled) or lacked a stable opponent id.
	Skipped int
	// Malformed counts imported records that fail validation. They are
	// still returned so the builder can count and keep them unprocessed.
	Malformed int
}

// Importer reads season files.
type Importer struct {
	log logger.Logger
	now func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l logger.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.log = l
		}
	}
}

// WithClock sets the clock used to date ranking files.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

// New creates an importer.
func New(opts ...Option) *Importer {
	i := &Importer{log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// LoadPath reads a file, or every *.json file of a directory in name order.
func (i *Importer) LoadPath(ctx context.Context, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return Result{}, fmt.Errorf("import %s: %w", path, err)
		}
		if len(files) == 0 {
			return Result{}, fmt.Errorf("%w in %s", ErrNoFiles, path)
		}
		sort.Strings(files)
	}

	acc := newAccumulator()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := i.loadFile(f, acc); err != nil {
			return Result{}, err
		}
	}
	res := acc.result()
	i.log.Info(ctx, "season imported",
		logger.String("path", path),
		logger.Int("files", res.Files),
		logger.Int("matches", len(res.Matches)),
		logger.Int("entities", len(res.Entities)),
		logger.Int("skipped", res.Skipped),
		logger.Int("malformed", res.Malformed))
	return res, nil
}

func (i *Importer) loadFile(path string, acc *accumulator) error {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	defer f.Close()

	if err := i.decode(f, filepath.Base(path), acc); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}

// Load reads one document. name is used to guess the weight class of
// files that do not state it (weight_class_157.json).
func (i *Importer) Load(r io.Reader, name string) (Result, error) {
	acc := newAccumulator()
	if err := i.decode(r, name, acc); err != nil {
		return Result{}, err
	}
	return acc.result(), nil
}

func (i *Importer) decode(r io.Reader, name string, acc *accumulator) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var p shape
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	acc.files++

	switch {
	case p.Wrestlers != nil:
		var s seasonFile
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if s.WeightClass == "" {
			s.WeightClass = classFromName(name)
		}
		acc.season(s)
	case p.Roster != nil:
		var t teamFile
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		acc.team(t)
	case p.Rankings != nil:
		var rf rankingsFile
		if err := json.Unmarshal(raw, &rf); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if rf.WeightClass == "" {
			rf.WeightClass = classFromName(name)
		}
		acc.addRankings(rf, i.now())
	default:
		return fmt.Errorf("%w: %s has no wrestlers, roster or rankings", ErrUnsupportedFormat, name)
	}
	return nil
}

var classNameRe = regexp.MustCompile(`(?i)(w?\d{2,3})`)

func classFromName(name string) string {
	if m := classNameRe.FindStringSubmatch(filepath.Base(name)); m != nil {
		return weightclass.Normalize(m[1])
	}
	return ""
}

// parseDate accepts ISO dates and the MM/DD/YYYY form of scraped pages.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "01/02/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// record builds a match record from a raw result string. An unparseable
// result keeps ResultUnknown so validation flags it.
func record(id, class string, date time.Time, a, b, winner, result string) model.MatchRecord {
	m := model.MatchRecord{
		ID:          id,
		WeightClass: weightclass.Normalize(class),
		Date:        date,
		EntityA:     a,
		EntityB:     b,
		Winner:      winner,
		Raw:         strings.TrimSpace(result),
	}
	if pr, err := model.ParseResult(result); err == nil {
		m.Result, m.Margin, m.PinTime = pr.Type, pr.Margin, pr.PinTime
	}
	return m
}
