package kstat

import "log/slog"

// Option configures a Reader.
type Option func(*Reader)

// WithControl makes the Reader use c instead of opening the system's
// kstat facility. The Reader takes ownership of c and closes it.
func WithControl(c Control) Option {
	return func(r *Reader) { r.ctl = c }
}

// WithRegistry sets the raw layout registry used for decoding. The
// default is DefaultRegistry().
func WithRegistry(reg *Registry) Option {
	return func(r *Reader) { r.dec = NewDecoder(reg) }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics records the Reader's activity in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// WithIsolatedDecodeErrors makes a DecodeError affect only the record
// it happened in: the record gets the error text in Record.Error, just
// like a failed read, and Read carries on. By default a DecodeError
// fails the whole Read.
func WithIsolatedDecodeErrors() Option {
	return func(r *Reader) { r.isolateDecode = true }
}
