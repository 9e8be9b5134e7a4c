package tagcsv

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Delimiter is the field separator of a file.
type Delimiter rune

const (
	Semicolon Delimiter = ';'
	Comma     Delimiter = ','
)

func (d Delimiter) String() string { return string(rune(d)) }

// SampleSize is the number of characters inspected for delimiter detection.
const SampleSize = 1024

// DetectDelimiter returns Comma only when sample has commas and no
// semicolon; every other sample is Semicolon.
func DetectDelimiter(sample string) Delimiter {
	if !strings.ContainsRune(sample, ';') && strings.ContainsRune(sample, ',') {
		return Comma
	}
	return Semicolon
}

// detectDelimiter runs DetectDelimiter and logs when the per-line counts of
// the chosen delimiter disagree. The heuristic result always stands.
func detectDelimiter(sample string, logger *slog.Logger) Delimiter {
	d := DetectDelimiter(sample)

	lines := splitLines(sample)
	if len(lines) > 1 && !strings.HasSuffix(sample, "\n") {
		lines = lines[:len(lines)-1] // sample may end mid-line
	}

	want := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := strings.Count(line, d.String())
		if want < 0 {
			want = n
			continue
		}
		if n != want {
			logger.Debug("delimiter count varies across sample lines",
				"delimiter", d.String(), "first", want, "other", n)
			break
		}
	}

	logger.Info("delimiter detected", "delimiter", d.String())
	return d
}

// sampleOf returns the first n characters of text.
func sampleOf(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// splitLines splits on \n, \r\n and \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
