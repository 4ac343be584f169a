package registry

import (
	"fmt"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/env"
)

// Built-in environment ids.
const (
	EnvBasic                = "Negotiation_basic-v0"
	EnvMultiSeller          = "Negotiation_multi_seller-v0"
	EnvMultiBuyer           = "Negotiation_multi_buyer-v0"
	EnvMultiBuyerSequential = "Negotiation_multi_buyer_sequential-v0"
	EnvMultiProduct         = "Negotiation_multi_product-v0"
)

func init() {
	registerBuiltins(Default)
}

func registerBuiltins(r *Registry) {
	must(r.Register(EnvBasic, SinglePairFactory, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0, "seller_min_price": 80.0, "price_tolerance": 0.0}
		o.MaxEpisodeSteps = 10
	}))
	must(r.Register(EnvMultiSeller, ParallelFactory, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0, "seller_min_price": 80.0, "num_sellers": 2, "price_tolerance": 0.0}
		o.MaxEpisodeSteps = 10
	}))
	must(r.Register(EnvMultiBuyer, ParallelFactory, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0, "seller_min_price": 80.0, "num_buyers": 2, "price_tolerance": 0.0}
		o.MaxEpisodeSteps = 10
	}))
	must(r.Register(EnvMultiBuyerSequential, SequentialFactory, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0, "seller_min_price": 80.0, "num_buyers": 2, "price_tolerance": 0.0}
		o.MaxEpisodeSteps = 15
	}))
	must(r.Register(EnvMultiProduct, MultiProductFactory, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0, "seller_min_price": 80.0, "max_rounds_per_product": 10, "price_tolerance": 0.0}
		o.MaxEpisodeSteps = 30
	}))
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("registry: built-in registration failed: %v", err))
	}
}

// ConfigFromParams maps the shared keyword configuration onto core.Config.
func ConfigFromParams(p Params) (core.Config, error) {
	cfg := core.DefaultConfig
	if v, ok := p.Int("max_rounds"); ok {
		cfg.MaxRounds = v
	}
	if v, ok := p.Int("max_rounds_per_product"); ok {
		cfg.MaxRoundsPerProduct = v
	}
	if v, ok := p.Float("price_tolerance"); ok {
		cfg.PriceTolerance = v
	}
	w, err := weightsFromParams(p)
	if err != nil {
		return core.Config{}, err
	}
	cfg.Weights = w
	return cfg, nil
}

func weightsFromParams(p Params) (core.Weights, error) {
	raw, ok := p["reward_weights"]
	if !ok {
		return core.DefaultWeights, nil
	}
	switch v := raw.(type) {
	case core.Weights:
		return v, nil
	case map[string]float64:
		// Undefined weight keys default to zero.
		return core.Weights{BuyerSavings: v["buyer_savings"], SellerProfit: v["seller_profit"], TimeCost: v["time_cost"]}, nil
	case map[string]any:
		w := core.Weights{}
		for key, dst := range map[string]*float64{"buyer_savings": &w.BuyerSavings, "seller_profit": &w.SellerProfit, "time_cost": &w.TimeCost} {
			if f, ok := Params(v).Float(key); ok {
				*dst = f
			}
		}
		return w, nil
	default:
		return core.Weights{}, fmt.Errorf("%w: reward_weights must be a weight mapping, got %T", core.ErrInvalidArgument, raw)
	}
}

// bounds reads scalar or per-participant price bounds. A plural list key
// wins over the scalar; the scalar is replicated count times.
func bounds(p Params, scalarKey, listKey, countKey string) ([]float64, error) {
	if raw, ok := p[listKey]; ok {
		switch v := raw.(type) {
		case []float64:
			return append([]float64(nil), v...), nil
		case []any:
			out := make([]float64, len(v))
			for i := range v {
				f, ok := Params{"v": v[i]}.Float("v")
				if !ok {
					return nil, fmt.Errorf("%w: %s[%d] must be numeric", core.ErrInvalidArgument, listKey, i)
				}
				out[i] = f
			}
			return out, nil
		default:
			return nil, fmt.Errorf("%w: %s must be a numeric list, got %T", core.ErrInvalidArgument, listKey, raw)
		}
	}
	scalar, ok := p.Float(scalarKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", core.ErrInvalidArgument, scalarKey)
	}
	count := 1
	if v, ok := p.Int(countKey); ok {
		count = v
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: %s must be positive, got %d", core.ErrInvalidArgument, countKey, count)
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = scalar
	}
	return out, nil
}

// SinglePairFactory builds the basic one-buyer one-seller environment.
func SinglePairFactory(p Params) (core.Episode, error) {
	cfg, err := ConfigFromParams(p)
	if err != nil {
		return nil, err
	}
	buyerMax, ok := p.Float("buyer_max_price")
	if !ok {
		return nil, fmt.Errorf("%w: buyer_max_price is required", core.ErrInvalidArgument)
	}
	sellerMin, ok := p.Float("seller_min_price")
	if !ok {
		return nil, fmt.Errorf("%w: seller_min_price is required", core.ErrInvalidArgument)
	}
	return env.NewSinglePair(buyerMax, sellerMin, func(o *env.Options) { o.Config = cfg })
}

// ParallelFactory builds a parallel coordinator over N buyers and M sellers.
func ParallelFactory(p Params) (core.Episode, error) {
	cfg, err := ConfigFromParams(p)
	if err != nil {
		return nil, err
	}
	buyerMax, err := bounds(p, "buyer_max_price", "buyer_max_prices", "num_buyers")
	if err != nil {
		return nil, err
	}
	sellerMin, err := bounds(p, "seller_min_price", "seller_min_prices", "num_sellers")
	if err != nil {
		return nil, err
	}
	return env.NewCoordinator(buyerMax, sellerMin, func(o *env.Options) { o.Config = cfg })
}

// SequentialFactory builds a sequential coordinator over one competing axis.
func SequentialFactory(p Params) (core.Episode, error) {
	cfg, err := ConfigFromParams(p)
	if err != nil {
		return nil, err
	}
	buyerMax, err := bounds(p, "buyer_max_price", "buyer_max_prices", "num_buyers")
	if err != nil {
		return nil, err
	}
	sellerMin, err := bounds(p, "seller_min_price", "seller_min_prices", "num_sellers")
	if err != nil {
		return nil, err
	}
	return env.NewSequential(buyerMax, sellerMin, func(o *env.Options) { o.Config = cfg })
}

// MultiProductFactory builds a multi-product wrapper of single pairs, each
// product slice bounded by max_rounds_per_product.
func MultiProductFactory(p Params) (core.Episode, error) {
	cfg, err := ConfigFromParams(p)
	if err != nil {
		return nil, err
	}
	buyerMax, ok := p.Float("buyer_max_price")
	if !ok {
		return nil, fmt.Errorf("%w: buyer_max_price is required", core.ErrInvalidArgument)
	}
	sellerMin, ok := p.Float("seller_min_price")
	if !ok {
		return nil, fmt.Errorf("%w: seller_min_price is required", core.ErrInvalidArgument)
	}

	perProduct := cfg
	if cfg.MaxRoundsPerProduct > 0 {
		perProduct.MaxRounds = cfg.MaxRoundsPerProduct
	}

	factory := func(core.Product) (core.Episode, error) {
		return env.NewSinglePair(buyerMax, sellerMin, func(o *env.Options) { o.Config = perProduct })
	}
	return env.NewMultiProduct(factory, func(o *env.Options) { o.Config = cfg })
}
