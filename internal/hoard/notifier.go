package hoard

// Notifier delivers the run report to an external channel (typically a local
// mail-relay command). Send is called exactly once per run; a delivery
// failure is logged by the caller and never changes the run's own status.
type Notifier interface {
	Send(subject, body string) error
}
