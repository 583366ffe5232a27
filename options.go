package paramsheet

import (
	"log/slog"

	"github.com/javajack/paramsheet/expression"
)

// Options holds configuration for a PropertySheet.
type Options struct {
	logger    *slog.Logger
	container Container
	decimals  int
	maxRows   int
	maxCols   int
	listeners []ChangeListener
	clipboard Clipboard
	evaluator *expression.Evaluator
}

func defaultOptions() *Options {
	return &Options{
		logger:   slog.New(slog.DiscardHandler),
		decimals: 2,
		maxRows:  DefaultMaxRows,
		maxCols:  DefaultMaxColumns,
	}
}

// Option configures a PropertySheet.
type Option func(*Options)

// WithLogger sets the structured logger (default: discard).
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithContainer sets the document that receives alias properties and
// resolves names that are not cells.
func WithContainer(c Container) Option {
	return func(o *Options) { o.container = c }
}

// WithDecimals sets the number of decimals used for display strings (default: 2).
func WithDecimals(n int) Option {
	return func(o *Options) { o.decimals = max(n, 0) }
}

// WithBounds limits the addressable area (default: 16384 rows, 702 columns).
func WithBounds(rows, cols int) Option {
	return func(o *Options) {
		if rows > 0 {
			o.maxRows = rows
		}
		if cols > 0 {
			o.maxCols = cols
		}
	}
}

// WithChangeListener adds a listener notified once per outermost atomic change.
func WithChangeListener(l ChangeListener) Option {
	return func(o *Options) { o.listeners = append(o.listeners, l) }
}

// WithClipboard sets the clipboard used by CopyText and PasteText (default: in-memory).
func WithClipboard(c Clipboard) Option {
	return func(o *Options) { o.clipboard = c }
}

// WithEvaluatorCache shares a compiled-program cache between sheets.
func WithEvaluatorCache(ev *expression.Evaluator) Option {
	return func(o *Options) { o.evaluator = ev }
}
