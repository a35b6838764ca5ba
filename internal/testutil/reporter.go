package testutil

import "hoard-go/internal/hoard"

// StubReportSink is an in-memory hoard.ReportSink.
type StubReportSink struct {
	Size     int64
	SizeErr  error
	WriteErr error

	// Written holds the summaries passed to Write, in order.
	Written []*hoard.RunSummary
}

var _ hoard.ReportSink = (*StubReportSink)(nil)

func (r *StubReportSink) ArchiveSize() (int64, error) {
	if r.SizeErr != nil {
		return 0, r.SizeErr
	}
	return r.Size, nil
}

func (r *StubReportSink) Write(sum *hoard.RunSummary) (string, string, error) {
	if r.WriteErr != nil {
		return "", "", r.WriteErr
	}
	r.Written = append(r.Written, sum)
	return "/tmp/run-report.txt", sum.OneLine(), nil
}
