package tagcsv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Decoder reads a decoded text stream into a Table.
type Decoder struct {
	mode   HeaderMode
	logger *slog.Logger
}

// NewDecoder returns a Decoder configured by opts.
func NewDecoder(opts ...Option) *Decoder {
	o := buildOptions(opts)
	return &Decoder{mode: o.mode, logger: o.logger}
}

// Mode returns the decoder's header mode.
func (d *Decoder) Mode() HeaderMode { return d.mode }

// Decode parses r with delim. The first record is the header; quoted fields
// may contain the delimiter and line breaks and "" is a literal quote.
func (d *Decoder) Decode(r io.Reader, delim Delimiter) (*Table, error) {
	cr := csv.NewReader(skipMarker(r))
	cr.Comma = rune(delim)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedRow, err)
	}

	header, err := NormalizeHeader(first, d.mode)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("header normalized", "columns", len(header), "mode", d.mode.String())

	b := tableBuilder{header: header}
	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		if !b.add(row) {
			skipped++
		}
	}

	if len(b.records) == 0 {
		return nil, ErrNoData
	}
	if skipped > 0 {
		d.logger.Debug("blank rows dropped", "count", skipped)
	}

	return &Table{
		Header:    header,
		Records:   b.records,
		Delimiter: delim,
	}, nil
}

// skipMarker drops a leading U+FEFF from a UTF-8 stream.
func skipMarker(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8Marker)); err == nil && string(head) == string(utf8Marker) {
		_, _ = br.Discard(len(utf8Marker))
	}
	return br
}
