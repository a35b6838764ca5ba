package hoard

// ReportSink persists the human-readable run report and measures the
// archive it describes.
type ReportSink interface {
	// ArchiveSize returns the total on-disk size of the archive in bytes.
	ArchiveSize() (int64, error)

	// Write renders the summary and persists it as a timestamped report
	// file. It returns the report path and the rendered body (the body is
	// reused verbatim as the notification text).
	Write(summary *RunSummary) (path string, body string, err error)
}
