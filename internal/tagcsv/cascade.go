package tagcsv

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
)

// Cascade tries its strategies in order and returns the first table any of
// them produces. It keeps no state between calls.
type Cascade struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New returns a Cascade running the primary, alternate-encodings, manual and
// fixed-schema stages, unless WithStrategies says otherwise.
func New(opts ...Option) *Cascade {
	o := buildOptions(opts)
	strategies := o.strategies
	if len(strategies) == 0 {
		deps := newStageDeps(o)
		strategies = []Strategy{
			&PrimaryStage{deps},
			&AlternateEncodingsStage{stageDeps: deps, Encodings: slices.Clone(AlternateEncodings)},
			&ManualStage{stageDeps: deps, Candidates: slices.Clone(ManualCandidates)},
			&FixedSchemaStage{stageDeps: deps, Schema: o.schema},
		}
	}
	return &Cascade{strategies: strategies, logger: o.logger}
}

// Stages returns the strategy names in the order they run.
func (c *Cascade) Stages() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Parse reads the file at path. It returns an error wrapping ErrMissingFile
// when path does not exist, and a *ParseError when every stage failed.
func (c *Cascade) Parse(path string) (*Table, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c.logger.Error("file does not exist", "path", path)
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
	}

	perr := &ParseError{Path: path}
	for _, s := range c.strategies {
		c.logger.Info("parse stage started", "path", path, "stage", s.Name())

		t, err := runStage(s, path)
		if err == nil {
			t.Strategy = s.Name()
			c.logger.Info("file parsed",
				"path", path,
				"stage", s.Name(),
				"encoding", t.Encoding,
				"delimiter", t.Delimiter.String(),
				"columns", len(t.Header),
				"records", len(t.Records),
				"degraded", t.Degraded,
			)
			return t, nil
		}

		c.logger.Warn("parse stage failed", "path", path, "stage", s.Name(), "error", err)
		perr.Failures = append(perr.Failures, &StageError{Stage: s.Name(), Err: err})
	}

	c.logger.Error("file could not be read by any stage", "path", path, "stages", len(c.strategies))
	return nil, perr
}

// runStage turns a panic or an empty result into an ordinary stage failure.
func runStage(s Strategy, path string) (t *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("stage panicked: %v", r)
		}
	}()

	t, err = s.Attempt(path)
	if err == nil && (t == nil || len(t.Records) == 0) {
		return nil, ErrNoData
	}
	return t, err
}
