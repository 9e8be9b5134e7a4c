package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/transform"

	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// writeDelimited writes CRLF-terminated records, quoting only fields that
// need it, through the configured text encoder.
func writeDelimited(w io.Writer, header []string, rows [][]string, opts Options) error {
	switch opts.Encoding {
	case tagcsv.UTF8SIG, tagcsv.UTF16LE, tagcsv.UTF8:
	default:
		return fmt.Errorf("unsupported csv encoding %q", opts.Encoding)
	}

	tw := transform.NewWriter(w, opts.Encoding.Text().NewEncoder())

	cw := csv.NewWriter(tw)
	cw.Comma = opts.Delimiter
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return tw.Close()
}
