// Package routing selects ordered lists of downstream payment connectors for
// payments and payouts in flight, honoring merchant-configured routing
// algorithms and a constraint graph of per-connector eligibility rules.
package routing

import (
	"context"

	"github.com/switchpay/routing/cgraph"
	"github.com/switchpay/routing/types"
)

// PerformStaticRoutingV1 resolves the profile's routing algorithm and
// evaluates it against the transaction, returning the ordered candidate
// connectors before eligibility filtering.
//
// When the algorithm reference carries no id, the merchant's default fallback
// config is returned as-is, without eligibility filtering; filtering of
// fallbacks is PerformEligibilityAnalysisWithFallback's job.
func (r *Router) PerformStaticRoutingV1(ctx context.Context, merchantID string, algorithmRef types.RoutingAlgorithmRef, transactionData TransactionData) ([]types.RoutableConnectorChoice, error) {
	profileID, err := transactionData.profileID()
	if err != nil {
		return nil, err
	}

	if algorithmRef.AlgorithmID == nil {
		fallback, err := r.store.GetMerchantDefaultConfig(ctx, profileID, transactionData.TransactionType())
		if err != nil {
			return nil, wrapRouting(err, ErrCodeFallbackConfigFetchFailed, "unable to fetch merchant default config")
		}
		return fallback, nil
	}

	compiled, err := r.ensureAlgorithmCached(ctx, merchantID, *algorithmRef.AlgorithmID, profileID, transactionData.TransactionType())
	if err != nil {
		return nil, err
	}

	return r.dispatchCompiledAlgorithm(compiled, transactionData)
}

// dispatchCompiledAlgorithm turns a compiled algorithm into candidates.
// Advanced programs recurse at most one level: their output is priority or
// volume split, never another program.
func (r *Router) dispatchCompiledAlgorithm(compiled *CompiledAlgorithm, transactionData TransactionData) ([]types.RoutableConnectorChoice, error) {
	switch compiled.Kind {
	case types.AlgorithmSingle:
		return []types.RoutableConnectorChoice{*compiled.Single}, nil

	case types.AlgorithmPriority:
		return append([]types.RoutableConnectorChoice(nil), compiled.Priority...), nil

	case types.AlgorithmVolumeSplit:
		selected, err := PerformVolumeSplit(compiled.VolumeSplit, "")
		if err != nil {
			return nil, wrapRouting(err, ErrCodeConnectorSelectionFailed, "volume split connector selection failed")
		}
		return selected, nil

	case types.AlgorithmAdvanced:
		input, err := r.makeBackendInput(transactionData)
		if err != nil {
			return nil, err
		}
		return executeDslAndGetConnector(input, compiled.Interpreter, "")

	default:
		return nil, newRoutingError(ErrCodeInvalidRoutingAlgorithmStructure, "compiled algorithm has unknown kind")
	}
}

// PerformStraightThroughRouting evaluates an algorithm supplied inline with
// the request. Pure: no cache or storage access. The returned flag tells the
// caller whether stored connector credentials should be used; a single
// selection with a creds identifier present turns it off.
func PerformStraightThroughRouting(algorithm *types.StraightThroughAlgorithm, credsIdentifier *string) ([]types.RoutableConnectorChoice, bool, error) {
	switch algorithm.Kind {
	case types.AlgorithmSingle:
		return []types.RoutableConnectorChoice{*algorithm.Single}, credsIdentifier == nil, nil

	case types.AlgorithmPriority:
		return append([]types.RoutableConnectorChoice(nil), algorithm.Priority...), true, nil

	case types.AlgorithmVolumeSplit:
		selected, err := PerformVolumeSplit(algorithm.VolumeSplit, "")
		if err != nil {
			return nil, false, wrapRouting(err, ErrCodeConnectorSelectionFailed, "volume split connector selection error in straight through routing")
		}
		return selected, true, nil

	default:
		return nil, false, newRoutingError(ErrCodeInvalidRoutingAlgorithmStructure, "straight through algorithm has unknown kind")
	}
}

// performCgraphFiltering keeps the candidates the constraint graph judges
// valid under the input, intersected with the allow-list when one is given.
// Input order is preserved. Evaluation failure on any candidate aborts the
// whole call: silently eliminating one connector would hide configuration
// bugs.
func (r *Router) performCgraphFiltering(
	ctx context.Context,
	merchantID string,
	chosen []types.RoutableConnectorChoice,
	input types.BackendInput,
	eligibleConnectors []types.ConnectorName,
	profileID string,
	transactionType types.TransactionType,
) ([]types.RoutableConnectorChoice, error) {
	graph, err := r.getMerchantCGraph(ctx, merchantID, profileID, transactionType)
	if err != nil {
		return nil, err
	}
	analysisCtx := cgraph.ContextFromBackendInput(input)

	finalSelection := make([]types.RoutableConnectorChoice, 0, len(chosen))
	for _, choice := range chosen {
		memo := cgraph.NewMemoization()
		eligible, err := graph.CheckValueValidity(choice.Connector, analysisCtx, memo)
		if err != nil {
			return nil, wrapRouting(err, ErrCodeKgraphAnalysisError, "constraint graph analysis failed")
		}

		allowListed := true
		if eligibleConnectors != nil {
			allowListed = false
			for _, name := range eligibleConnectors {
				if name == choice.Connector {
					allowListed = true
					break
				}
			}
		}

		if eligible && allowListed {
			finalSelection = append(finalSelection, choice)
		}
	}
	return finalSelection, nil
}

// PerformEligibilityAnalysis filters the chosen candidates through the
// constraint graph for the transaction.
func (r *Router) PerformEligibilityAnalysis(
	ctx context.Context,
	merchantID string,
	chosen []types.RoutableConnectorChoice,
	transactionData TransactionData,
	eligibleConnectors []types.ConnectorName,
	profileID string,
) ([]types.RoutableConnectorChoice, error) {
	input, err := r.makeBackendInput(transactionData)
	if err != nil {
		return nil, err
	}
	return r.performCgraphFiltering(ctx, merchantID, chosen, input, eligibleConnectors, profileID, transactionData.TransactionType())
}

// PerformFallbackRouting filters the merchant's default config through the
// constraint graph for the transaction.
func (r *Router) PerformFallbackRouting(
	ctx context.Context,
	merchantID string,
	transactionData TransactionData,
	eligibleConnectors []types.ConnectorName,
	profileID string,
) ([]types.RoutableConnectorChoice, error) {
	fallback, err := r.store.GetMerchantDefaultConfig(ctx, profileID, transactionData.TransactionType())
	if err != nil {
		return nil, wrapRouting(err, ErrCodeFallbackConfigFetchFailed, "unable to fetch merchant default config")
	}
	input, err := r.makeBackendInput(transactionData)
	if err != nil {
		return nil, err
	}
	return r.performCgraphFiltering(ctx, merchantID, fallback, input, eligibleConnectors, profileID, transactionData.TransactionType())
}

// PerformEligibilityAnalysisWithFallback filters the chosen candidates, then
// appends the merchant's filtered default config, skipping entries already
// selected. A fallback fetch failure is non-fatal and contributes nothing.
func (r *Router) PerformEligibilityAnalysisWithFallback(
	ctx context.Context,
	merchantID string,
	chosen []types.RoutableConnectorChoice,
	transactionData TransactionData,
	eligibleConnectors []types.ConnectorName,
	profileID string,
) ([]types.RoutableConnectorChoice, error) {
	finalSelection, err := r.PerformEligibilityAnalysis(ctx, merchantID, chosen, transactionData, eligibleConnectors, profileID)
	if err != nil {
		return nil, err
	}

	fallbackSelection, err := r.PerformFallbackRouting(ctx, merchantID, transactionData, eligibleConnectors, profileID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("fallback routing failed, continuing with primary selection only")
		fallbackSelection = nil
	}

	for _, choice := range fallbackSelection {
		if !types.ContainsChoice(finalSelection, choice) {
			finalSelection = append(finalSelection, choice)
		}
	}

	connectors := make([]types.ConnectorName, 0, len(finalSelection))
	for _, choice := range finalSelection {
		connectors = append(connectors, choice.Connector)
	}
	r.logger.Debug().Interface("final_selected_connectors_for_routing", connectors).Msg("list of final selected connectors for routing")

	return finalSelection, nil
}
