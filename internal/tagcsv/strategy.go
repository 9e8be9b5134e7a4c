package tagcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Stage names, in cascade order.
const (
	StagePrimary            = "primary"
	StageAlternateEncodings = "alternate-encodings"
	StageManual             = "manual"
	StageFixedSchema        = "fixed-schema"
)

// Strategy is one way of turning a file into a Table.
type Strategy interface {
	Name() string
	Attempt(path string) (*Table, error)
}

// AlternateEncodings is the retry order of the alternate-encodings stage.
var AlternateEncodings = []Encoding{UTF16LE, UTF16BE, UTF8, Windows1252, ISO88591}

// ManualCandidates are tried, after the sniffed encoding, by the manual stage.
var ManualCandidates = []Encoding{UTF16LE, UTF16BE, UTF8, Windows1252}

// stageDeps is shared by every stage.
type stageDeps struct {
	sniffer     *Sniffer
	decoder     *Decoder
	logger      *slog.Logger
	maxFileSize int64
}

func newStageDeps(o options) stageDeps {
	return stageDeps{
		sniffer:     &Sniffer{logger: o.logger},
		decoder:     &Decoder{mode: o.mode, logger: o.logger},
		logger:      o.logger,
		maxFileSize: o.maxFileSize,
	}
}

// decodeFile reads path, decodes it strictly as enc, detects the delimiter
// from a sample and decodes the table.
func (d stageDeps) decodeFile(path string, enc Encoding) (*Table, error) {
	raw, err := readFile(path, d.maxFileSize)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	text, err := enc.Decode(raw)
	if err != nil {
		return nil, err
	}
	// Text exports never contain NUL; one means the encoding is wrong.
	if strings.ContainsRune(text, 0) {
		return nil, fmt.Errorf("%w: NUL character in %s text", ErrDecode, enc)
	}

	delim := detectDelimiter(sampleOf(text, SampleSize), d.logger)
	t, err := d.decoder.Decode(strings.NewReader(text), delim)
	if err != nil {
		return nil, err
	}
	t.Encoding = enc
	return t, nil
}

// PrimaryStage sniffs the encoding and decodes with it.
type PrimaryStage struct{ stageDeps }

// NewPrimaryStage returns the primary stage configured by opts.
func NewPrimaryStage(opts ...Option) *PrimaryStage {
	return &PrimaryStage{newStageDeps(buildOptions(opts))}
}

func (s *PrimaryStage) Name() string { return StagePrimary }

func (s *PrimaryStage) Attempt(path string) (*Table, error) {
	enc, err := s.sniffer.Sniff(path)
	if err != nil {
		return nil, err
	}
	return s.decodeFile(path, enc)
}

// AlternateEncodingsStage retries every encoding of Encodings except the
// sniffed one.
type AlternateEncodingsStage struct {
	stageDeps
	Encodings []Encoding
}

// NewAlternateEncodingsStage returns the alternate-encodings stage
// configured by opts.
func NewAlternateEncodingsStage(opts ...Option) *AlternateEncodingsStage {
	return &AlternateEncodingsStage{
		stageDeps: newStageDeps(buildOptions(opts)),
		Encodings: slices.Clone(AlternateEncodings),
	}
}

func (s *AlternateEncodingsStage) Name() string { return StageAlternateEncodings }

func (s *AlternateEncodingsStage) Attempt(path string) (*Table, error) {
	tried, sniffErr := s.sniffer.Sniff(path)
	if sniffErr != nil {
		return nil, sniffErr
	}

	var errs []error
	for _, enc := range s.Encodings {
		if enc == tried {
			continue
		}
		s.logger.Info("trying alternate encoding", "path", path, "encoding", enc)
		t, err := s.decodeFile(path, enc)
		if err == nil {
			return t, nil
		}
		s.logger.Info("alternate encoding failed", "encoding", enc, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", enc, err))
	}
	return nil, fmt.Errorf("no alternate encoding succeeded: %w", errors.Join(errs...))
}

// ManualStage decodes with replacement and splits lines by hand, for files
// the CSV reader cannot get through.
type ManualStage struct {
	stageDeps
	Candidates []Encoding
}

// NewManualStage returns the manual stage configured by opts.
func NewManualStage(opts ...Option) *ManualStage {
	return &ManualStage{
		stageDeps:  newStageDeps(buildOptions(opts)),
		Candidates: slices.Clone(ManualCandidates),
	}
}

func (s *ManualStage) Name() string { return StageManual }

func (s *ManualStage) Attempt(path string) (*Table, error) {
	raw, err := readFile(path, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	candidates := make([]Encoding, 0, len(s.Candidates)+1)
	if enc, err := s.sniffer.Sniff(path); err == nil {
		candidates = append(candidates, enc)
	}
	for _, enc := range s.Candidates {
		if !slices.Contains(candidates, enc) {
			candidates = append(candidates, enc)
		}
	}

	var errs []error
	for _, enc := range candidates {
		t, err := s.parseLines(enc.DecodeLenient(raw))
		if err != nil {
			s.logger.Info("manual read failed", "encoding", enc, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", enc, err))
			continue
		}
		t.Encoding = enc
		return t, nil
	}
	return nil, fmt.Errorf("no candidate encoding produced records: %w", errors.Join(errs...))
}

func (s *ManualStage) parseLines(text string) (*Table, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, ErrNoData
	}

	headerLine := cleanHeaderField(lines[0])
	delim := DetectDelimiter(headerLine)
	header, err := NormalizeHeader(SplitQuoted(headerLine, rune(delim)), s.decoder.mode)
	if err != nil {
		return nil, err
	}

	b := tableBuilder{header: header}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.add(SplitQuoted(line, rune(delim)))
	}
	if len(b.records) == 0 {
		return nil, ErrNoData
	}
	return &Table{Header: header, Records: b.records, Delimiter: delim}, nil
}

// FixedSchemaStage ignores the file's header and pairs each data row with
// Schema by position. Its tables are always marked Degraded.
type FixedSchemaStage struct {
	stageDeps
	Schema []string
}

// NewFixedSchemaStage returns the last-resort stage configured by opts.
func NewFixedSchemaStage(opts ...Option) *FixedSchemaStage {
	o := buildOptions(opts)
	return &FixedSchemaStage{stageDeps: newStageDeps(o), Schema: o.schema}
}

func (s *FixedSchemaStage) Name() string { return StageFixedSchema }

func (s *FixedSchemaStage) Attempt(path string) (*Table, error) {
	raw, err := readFile(path, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	text, err := UTF16LE.Decode(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(skipMarker(strings.NewReader(text)))
	cr.Comma = rune(Semicolon)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}

	header := slices.Clone(s.Schema)
	b := tableBuilder{header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		b.add(row)
	}
	if len(b.records) == 0 {
		return nil, ErrNoData
	}

	s.logger.Warn("file header ignored, fixed schema assumed; columns are matched by position only",
		"path", path, "columns", len(header), "records", len(b.records))

	return &Table{
		Header:    header,
		Records:   b.records,
		Encoding:  UTF16LE,
		Delimiter: Semicolon,
		Degraded:  true,
	}, nil
}

// readFile reads the whole file, refusing more than max bytes when max > 0.
func readFile(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if max > 0 {
		r = io.LimitReader(f, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if max > 0 && int64(len(data)) > max {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, path, max)
	}
	return data, nil
}
