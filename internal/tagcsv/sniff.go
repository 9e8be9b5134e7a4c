package tagcsv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/saintfish/chardet"
)

var utf8Marker = []byte{0xEF, 0xBB, 0xBF}

// markers is ordered longest first so a utf-32 marker is never read as utf-16.
var markers = []struct {
	enc    Encoding
	prefix []byte
}{
	{UTF32LE, []byte{0xFF, 0xFE, 0x00, 0x00}},
	{UTF32BE, []byte{0x00, 0x00, 0xFE, 0xFF}},
	{UTF8SIG, utf8Marker},
	{UTF16LE, []byte{0xFF, 0xFE}},
	{UTF16BE, []byte{0xFE, 0xFF}},
}

// chardetSampleSize bounds the bytes handed to chardet for the debug report.
const chardetSampleSize = 2048

// Sniffer guesses a file's encoding from its leading bytes.
type Sniffer struct {
	logger *slog.Logger
}

// NewSniffer returns a Sniffer configured by opts.
func NewSniffer(opts ...Option) *Sniffer {
	o := buildOptions(opts)
	return &Sniffer{logger: o.logger}
}

// Sniff returns the encoding of the file at path. The only error it returns
// is ErrEmptyFile; read failures fall back to utf-16-le.
func (s *Sniffer) Sniff(path string) (Encoding, error) {
	head, err := readHead(path, 4)
	if err != nil {
		s.logger.Error("encoding detection failed, assuming utf-16-le", "path", path, "error", err)
		return UTF16LE, nil
	}
	if len(head) == 0 {
		s.logger.Error("file is empty", "path", path)
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	if enc, ok := SniffBytes(head); ok {
		s.logger.Info("byte order marker found", "path", path, "encoding", enc)
		return enc, nil
	}

	enc := guessUnmarked(head)
	s.logger.Info("no byte order marker, encoding guessed", "path", path, "encoding", enc)
	s.secondOpinion(path, enc)
	return enc, nil
}

// SniffBytes reports the encoding announced by a byte-order marker at the
// start of head, if any.
func SniffBytes(head []byte) (Encoding, bool) {
	for _, m := range markers {
		if bytes.HasPrefix(head, m.prefix) {
			return m.enc, true
		}
	}
	return "", false
}

// guessUnmarked treats a null in an odd position as utf-16-le, the tool's
// usual export format.
func guessUnmarked(head []byte) Encoding {
	if (len(head) > 1 && head[1] == 0) || (len(head) > 3 && head[3] == 0) {
		return UTF16LE
	}
	return UTF8
}

// secondOpinion logs chardet's view of the file at debug level.
func (s *Sniffer) secondOpinion(path string, guess Encoding) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	sample, err := readHead(path, chardetSampleSize)
	if err != nil || len(sample) == 0 {
		return
	}
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		s.logger.Debug("chardet found no charset", "path", path, "error", err)
		return
	}
	s.logger.Debug("chardet second opinion",
		"path", path,
		"guess", guess,
		"charset", res.Charset,
		"confidence", res.Confidence,
	)
}

// readHead reads at most n bytes from the start of path.
func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:read], nil
}
