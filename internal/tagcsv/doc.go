// Package tagcsv reads the delimited exports of an audio tagging tool into
// a table of text records.
//
// The exports do not reliably declare their encoding, byte-order marker,
// delimiter or even a complete header, so parsing is a cascade of strategies
// tried in order until one yields at least one record:
//
//  1. primary: sniff the encoding from the leading bytes, detect the
//     delimiter from a sample and decode with encoding/csv.
//  2. alternate-encodings: the same with utf-16-le, utf-16-be, utf-8,
//     windows-1252 and iso-8859-1, skipping the sniffed encoding.
//  3. manual: decode with replacement characters and split lines with
//     [SplitQuoted].
//  4. fixed-schema: read utf-16-le with semicolons and pair each row with
//     [FixedSchema] by position. Tables from this stage are Degraded.
//
// Every stage error is logged and moves the cascade on. Callers only see
// [ErrMissingFile] or a [*ParseError] matching [ErrUnreadableFile]:
//
//	c := tagcsv.New(tagcsv.WithLogger(logger))
//	t, err := c.Parse(path)
//	if err != nil {
//	    return err
//	}
//	for _, rec := range t.Records {
//	    fmt.Println(rec["Title"])
//	}
//
// Parsing is synchronous and keeps no state between calls.
package tagcsv
