package tagcsv

// fixedSchema is the column layout of the tagging tool's default export
// profile, used when a file's own header cannot be read.
var fixedSchema = []string{
	"Title", "Artist", "Album", "Year", "Genre", "Comment", "ISRC", "Language",
	"AudioLength", "FileSize", "Crc", "FileCreateDate", "LastModified", "RelativePath",
	"Filename", "Extension", "Directory", "ParentDirectory", "Keywords", "Mood",
	"Usage", "Song", "ModeStereo", "BPM", "Codec", "Bitrate", "Samplerate", "VBR",
	"TagType", "CoverDescription", "CoverSize", "CoverType", "CoverMime",
	"CoverHeight", "CoverWidth", "UnSyncLyrics", "SrcFix", "PlayCounter",
}

// FixedSchema returns a copy of the default export column layout.
func FixedSchema() []string {
	return append([]string(nil), fixedSchema...)
}
