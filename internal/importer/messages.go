package importer

// messages.go turns errors into one short notification for the user.
//
// Codes, for support reference:
//
//	FILE001 file too large        FILE002 file not found
//	FILE003 empty file            FILE004 no file in the request
//	PARSE001 no stage could read the file
//	PARSE002 unusable header      PARSE003 undecodable bytes
//	PARSE004 no data rows         PARSE005 malformed row
//	IMP001 parser busy            IMP002 no database configured
//	IMP003 request cancelled      IMP004 request timed out
//	DB001 track not found         DB002 connection refused
//	DB003 connection reset        DB004 deadlock
//	RATE001 rate limited          ERR000 anything else
//
// Known errors are matched with errors.Is, most specific first, so a
// *tagcsv.ParseError caused by an empty file still reads as FILE003.
// Errors that lost their identity, such as driver messages, fall back to
// case-insensitive substring patterns.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tagimport/internal/store"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{tagcsv.ErrEmptyFile, UserMessage{"The file is empty", "Export the tracks again and check the file has data", "FILE003"}},
	{tagcsv.ErrFileTooLarge, UserMessage{"The file is too large", "Split the export into smaller files", "FILE001"}},
	{tagcsv.ErrMissingFile, UserMessage{"The file was not found", "Check the path and try again", "FILE002"}},
	{ErrNoFile, UserMessage{"No file was selected", "Please select a CSV export to upload", "FILE004"}},
	{tagcsv.ErrUnreadableFile, UserMessage{"The file could not be read as a tag export", "Export again as CSV from the tagging tool, in UTF-16 or UTF-8", "PARSE001"}},
	{tagcsv.ErrInvalidHeader, UserMessage{"The first line is not a usable header", "Make sure the export includes column names", "PARSE002"}},
	{tagcsv.ErrDecode, UserMessage{"The file contains characters that could not be decoded", "Export again in UTF-16 or UTF-8", "PARSE003"}},
	{tagcsv.ErrNoData, UserMessage{"The file has a header but no tracks", "Export again with at least one track selected", "PARSE004"}},
	{tagcsv.ErrMalformedRow, UserMessage{"A line in the file is malformed", "Check the file for unbalanced quotes", "PARSE005"}},
	{ErrBusy, UserMessage{"The server is busy reading other files", "Please wait a moment and try again", "IMP001"}},
	{ErrNoStore, UserMessage{"No database is configured", "Set DATABASE_URL to import tracks", "IMP002"}},
	{context.Canceled, UserMessage{"The request was cancelled", "Please try again", "IMP003"}},
	{context.DeadlineExceeded, UserMessage{"The request timed out", "Try a smaller file or try again later", "IMP004"}},
	{store.ErrNotFound, UserMessage{"The requested tracks do not exist", "Refresh the list and try again", "DB001"}},
}

var patternMessages = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", UserMessage{"Unable to connect to the database", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"The database connection was interrupted", "Please try again", "DB003"}},
	{"deadlock", UserMessage{"The database was busy with conflicting operations", "Please try again", "DB004"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. A nil error maps
// to the zero UserMessage and an unknown one to code ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}
	errStr := strings.ToLower(err.Error())
	for _, pm := range patternMessages {
		if strings.Contains(errStr, pm.pattern) {
			return pm.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
