package reconcile

import (
	"github.com/rs/zerolog"

	"github.com/meridianlabs/boardsync/pkg/logging"
)

// options holds the run configuration.
type options struct {
	dryRun             bool
	limit              int
	linkColumn         string
	annotationTransfer bool
	annotationHeader   string
	logger             *zerolog.Logger
}

func defaultOptions() options {
	return options{
		annotationTransfer: true,
		annotationHeader:   "<strong>Transferred from source board</strong>",
		logger:             logging.Default(),
	}
}

// Option configures a Reconciler.
type Option func(*options)

// WithDryRun makes the run decide without writing: matches are counted
// and audited, but no mutation reaches the board store.
func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

// WithLimit caps the number of source items processed. Zero means all.
func WithLimit(limit int) Option {
	return func(o *options) {
		o.limit = limit
	}
}

// WithLinkColumn names a board-relation column on the source board that
// is pointed at the matched or created target item, so source items stay
// traceable after the run.
func WithLinkColumn(columnID string) Option {
	return func(o *options) {
		o.linkColumn = columnID
	}
}

// WithAnnotationTransfer controls whether the source item's annotations
// are copied onto the target item, combined oldest-first into a single
// annotation.
func WithAnnotationTransfer(enabled bool) Option {
	return func(o *options) {
		o.annotationTransfer = enabled
	}
}

// WithAnnotationHeader sets the header line prepended to transferred
// annotations.
func WithAnnotationHeader(header string) Option {
	return func(o *options) {
		o.annotationHeader = header
	}
}

// WithLogger sets the run logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
