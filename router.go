package routing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/switchpay/routing/cache"
	"github.com/switchpay/routing/cgraph"
	"github.com/switchpay/routing/config"
	"github.com/switchpay/routing/dsl"
	"github.com/switchpay/routing/storage"
	"github.com/switchpay/routing/types"
)

// CompiledAlgorithm is a routing algorithm prepared for execution: advanced
// programs are parsed and validated into an interpreter backend. Compiled
// values are immutable and shared across concurrent selections.
type CompiledAlgorithm struct {
	Kind        types.AlgorithmKind
	Single      *types.RoutableConnectorChoice
	Priority    []types.RoutableConnectorChoice
	VolumeSplit []types.ConnectorVolumeSplit
	Interpreter *dsl.InterpreterBackend
}

// Config assembles a Router.
type Config struct {
	// Store supplies algorithm rows, connector accounts, profiles and
	// default configs. Required.
	Store storage.RoutingStore

	// PMFilters is the global payment-method filter configuration in wire
	// form. Unknown connector keys fail construction.
	PMFilters config.PaymentMethodFilters

	// TenantKeyPrefix isolates this tenant's cache keys.
	TenantKeyPrefix string

	// Bus propagates cache invalidations between instances. Optional; nil
	// means purely local caching.
	Bus cache.Bus

	// Registerer receives the cache metrics. Optional.
	Registerer prometheus.Registerer

	// Logger for soft failures and selection traces. Optional; defaults to
	// the package logger.
	Logger *zerolog.Logger
}

// Router is the routing orchestrator: it resolves merchant algorithms,
// evaluates them against payments, and filters candidates through the
// constraint graph. Safe for concurrent use.
type Router struct {
	store        storage.RoutingStore
	pmFilters    config.CountryCurrencyFilter
	tenantPrefix string
	logger       zerolog.Logger

	algorithmCache *cache.Cache[*CompiledAlgorithm]
	cgraphCache    *cache.Cache[*cgraph.Graph]
}

// New validates the configuration and constructs a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("routing: Config.Store is required")
	}

	filters, err := cfg.PMFilters.Split()
	if err != nil {
		return nil, wrapRouting(err, ErrCodeInvalidConnectorName, "invalid pm_filters configuration")
	}

	logger := defaultLogger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	cacheOpts := []cache.Option{}
	if cfg.Bus != nil {
		cacheOpts = append(cacheOpts, cache.WithBus(cfg.Bus))
	}
	if cfg.Registerer != nil {
		cacheOpts = append(cacheOpts, cache.WithRegisterer(cfg.Registerer))
	}

	return &Router{
		store:          cfg.Store,
		pmFilters:      filters,
		tenantPrefix:   cfg.TenantKeyPrefix,
		logger:         logger,
		algorithmCache: cache.New[*CompiledAlgorithm]("routing", cacheOpts...),
		cgraphCache:    cache.New[*cgraph.Graph]("cgraph", cacheOpts...),
	}, nil
}

// Cache key grammar. Payout entries live in a separate namespace via the
// "_po" infix.

func routingCacheKey(merchantID, profileID string, transactionType types.TransactionType) string {
	if transactionType == types.TransactionPayout {
		return fmt.Sprintf("routing_config_po_%s_%s", merchantID, profileID)
	}
	return fmt.Sprintf("routing_config_%s_%s", merchantID, profileID)
}

func cgraphCacheKey(merchantID, profileID string, transactionType types.TransactionType) string {
	if transactionType == types.TransactionPayout {
		return fmt.Sprintf("cgraph_po_%s_%s", merchantID, profileID)
	}
	return fmt.Sprintf("cgraph_%s_%s", merchantID, profileID)
}

func (r *Router) cacheKey(key string) cache.Key {
	return cache.Key{Key: key, Prefix: r.tenantPrefix}
}

// ensureAlgorithmCached resolves the compiled algorithm for the key,
// loading and compiling from the store on a miss.
func (r *Router) ensureAlgorithmCached(ctx context.Context, merchantID, algorithmID, profileID string, transactionType types.TransactionType) (*CompiledAlgorithm, error) {
	if profileID == "" {
		return nil, newRoutingError(ErrCodeProfileIDMissing, "algorithm cache lookup needs a profile id")
	}
	key := routingCacheKey(merchantID, profileID, transactionType)

	if compiled, ok := r.algorithmCache.Get(ctx, r.cacheKey(key)); ok {
		return compiled, nil
	}
	return r.refreshRoutingCache(ctx, key, algorithmID, profileID)
}

// RefreshRoutingCache unconditionally reloads the algorithm from the store,
// recompiles it and publishes it, returning the new compiled value. Partial
// or failed compilations are never published.
func (r *Router) RefreshRoutingCache(ctx context.Context, merchantID, profileID, algorithmID string, transactionType types.TransactionType) (*CompiledAlgorithm, error) {
	key := routingCacheKey(merchantID, profileID, transactionType)
	return r.refreshRoutingCache(ctx, key, algorithmID, profileID)
}

func (r *Router) refreshRoutingCache(ctx context.Context, key, algorithmID, profileID string) (*CompiledAlgorithm, error) {
	row, err := r.store.FindRoutingAlgorithmByProfileIDAlgorithmID(ctx, profileID, algorithmID)
	if err != nil {
		r.algorithmCache.MarkRefreshFailure()
		return nil, wrapRouting(err, ErrCodeDslMissingInDb, "routing algorithm not found in storage")
	}

	var algorithm types.RoutingAlgorithm
	if err := json.Unmarshal(row.AlgorithmData, &algorithm); err != nil {
		r.algorithmCache.MarkRefreshFailure()
		return nil, wrapRouting(err, ErrCodeDslParsingError, "unable to parse stored routing algorithm")
	}

	compiled := &CompiledAlgorithm{
		Kind:        algorithm.Kind,
		Single:      algorithm.Single,
		Priority:    algorithm.Priority,
		VolumeSplit: algorithm.VolumeSplit,
	}
	if algorithm.Kind == types.AlgorithmAdvanced {
		interpreter, err := dsl.NewInterpreterBackend(algorithm.Program)
		if err != nil {
			r.algorithmCache.MarkRefreshFailure()
			return nil, wrapRouting(err, ErrCodeDslBackendInitError, "error initializing interpreter backend")
		}
		compiled.Interpreter = interpreter
	}

	r.algorithmCache.Push(ctx, r.cacheKey(key), compiled)
	r.algorithmCache.MarkRefresh()
	r.logger.Debug().Str("cache_key", key).Msg("published compiled routing algorithm")
	return compiled, nil
}

// getMerchantCGraph resolves the constraint graph for the key, building it
// from the merchant's connector accounts on a miss.
func (r *Router) getMerchantCGraph(ctx context.Context, merchantID, profileID string, transactionType types.TransactionType) (*cgraph.Graph, error) {
	if profileID == "" {
		return nil, newRoutingError(ErrCodeProfileIDMissing, "constraint graph lookup needs a profile id")
	}
	key := cgraphCacheKey(merchantID, profileID, transactionType)

	if graph, ok := r.cgraphCache.Get(ctx, r.cacheKey(key)); ok {
		return graph, nil
	}
	return r.refreshCGraphCache(ctx, key, merchantID, profileID, transactionType)
}

// RefreshCGraphCache unconditionally rebuilds and republishes the constraint
// graph for the key.
func (r *Router) RefreshCGraphCache(ctx context.Context, merchantID, profileID string, transactionType types.TransactionType) (*cgraph.Graph, error) {
	key := cgraphCacheKey(merchantID, profileID, transactionType)
	return r.refreshCGraphCache(ctx, key, merchantID, profileID, transactionType)
}

func (r *Router) refreshCGraphCache(ctx context.Context, key, merchantID, profileID string, transactionType types.TransactionType) (*cgraph.Graph, error) {
	accounts, err := r.store.FindMerchantConnectorAccountsByMerchantIDAndDisabledList(ctx, merchantID, false)
	if err != nil {
		r.cgraphCache.MarkRefreshFailure()
		return nil, wrapRouting(err, ErrCodeKgraphCacheRefreshFailed, "unable to load merchant connector accounts")
	}

	graph, err := cgraph.BuildGraph(accounts, r.pmFilters, transactionType, &profileID)
	if err != nil {
		r.cgraphCache.MarkRefreshFailure()
		return nil, wrapRouting(err, ErrCodeKgraphCacheRefreshFailed, "constraint graph construction failed")
	}

	r.cgraphCache.Push(ctx, r.cacheKey(key), graph)
	r.cgraphCache.MarkRefresh()
	r.logger.Debug().Str("cache_key", key).Msg("published constraint graph")
	return graph, nil
}

// executeDslAndGetConnector runs a compiled program and normalizes its
// selection into an ordered connector list. Priority passes through; volume
// splits are resolved with the given seed. Anything else is a misauthored
// program.
func executeDslAndGetConnector(input types.BackendInput, interpreter *dsl.InterpreterBackend, seed string) ([]types.RoutableConnectorChoice, error) {
	selection, err := interpreter.Execute(input)
	if err != nil {
		return nil, wrapRouting(err, ErrCodeDslExecutionError, "rule program execution failed")
	}

	switch selection.Kind {
	case types.AlgorithmPriority:
		return selection.Priority, nil
	case types.AlgorithmVolumeSplit:
		selected, err := PerformVolumeSplit(selection.VolumeSplit, seed)
		if err != nil {
			return nil, wrapRouting(err, ErrCodeDslFinalConnectorSelectionFailed, "volume split on rule program output failed")
		}
		return selected, nil
	default:
		return nil, wrapRouting(
			errors.Errorf("program produced selection of kind %q", selection.Kind),
			ErrCodeDslIncorrectSelectionAlgorithm,
			"unsupported selection received from rule program",
		)
	}
}
