package domain

// FileFormat identifies how a local source file is parsed.
type FileFormat int

const (
	FileFormatUnsupported FileFormat = iota
	FileFormatCSV
	FileFormatJSON
	FileFormatParquet
)

// FormatFromExtension maps an extension (including the dot) to a FileFormat.
// Matching is exact and case-sensitive.
func FormatFromExtension(ext string) FileFormat {
	switch ext {
	case ".csv":
		return FileFormatCSV
	case ".json":
		return FileFormatJSON
	case ".parquet":
		return FileFormatParquet
	default:
		return FileFormatUnsupported
	}
}

func (f FileFormat) String() string {
	switch f {
	case FileFormatCSV:
		return "csv"
	case FileFormatJSON:
		return "json"
	case FileFormatParquet:
		return "parquet"
	default:
		return "unsupported"
	}
}

// SourceFile is a local file discovered for ingestion.
type SourceFile struct {
	Path   string
	Name   string
	Ext    string
	Format FileFormat
}
