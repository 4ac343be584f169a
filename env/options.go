package env

import (
	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
	"github.com/hupe1980/negomesh/parse"
)

// Options holds dependency and configuration overrides passed to the
// environment constructors.
type Options struct {
	// Config is the immutable episode configuration.
	Config core.Config
	// Extractor parses numeric offers out of action text. Defaults to
	// parse.Price.
	Extractor core.PriceExtractor
	// Classifier detects explicit walk-aways. Defaults to parse.IsRejection.
	Classifier core.RejectionClassifier
	// Logger receives structured engine diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// BuyerID / SellerID tag the two participants of a single pair. Used by
	// coordinators embedding pair machines; standalone callers keep 0/0.
	BuyerID  int
	SellerID int
	// EnvironmentInfo is merged read-only into every observation's
	// environment_info. Coordinators use it to expose prior sub-negotiation
	// context to later participants.
	EnvironmentInfo map[string]any
}

func defaultOptions() Options {
	return Options{
		Config:     core.DefaultConfig,
		Extractor:  parse.Price,
		Classifier: parse.IsRejection,
		Logger:     logging.NoOpLogger{},
	}
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Extractor == nil {
		opts.Extractor = parse.Price
	}
	if opts.Classifier == nil {
		opts.Classifier = parse.IsRejection
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return opts
}
