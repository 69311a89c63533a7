package bulk

// Mode distinguishes the two import phases.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeCommit  Mode = "commit"
)

// RowError describes why one data row was rejected. Row is the physical
// line the record starts on, with the header on line 1. Field is set
// when a single field caused the rejection.
type RowError struct {
	Row     int
	Field   string
	Message string
}

// Report is the accounting of one import phase. Every data row read is
// either imported, listed in RowErrors, or counted in SkippedBlank, so
// ImportedCount+len(RowErrors) never exceeds RowsScanned.
type Report struct {
	Mode          Mode
	RowsScanned   int
	ImportedCount int
	RowErrors     []RowError
	SkippedBlank  int
}
