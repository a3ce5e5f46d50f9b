package routing

import (
	"context"
	"encoding/json"

	"github.com/switchpay/routing/types"
)

// SessionConnectorData is one candidate connector offered in a session,
// with the instrument it serves and how its session token is obtained.
type SessionConnectorData struct {
	PaymentMethodType types.PaymentMethodType
	Connector         types.RoutableConnectorChoice
	GetToken          types.GetToken
}

// SessionFlowRoutingInput is the envelope for session-flow routing.
type SessionFlowRoutingInput struct {
	MerchantID     string
	PaymentIntent  PaymentIntent
	PaymentAttempt PaymentAttempt
	Country        *types.Country
	Chosen         []SessionConnectorData
}

// sessionPmTypeInput carries the per-partition state of one session routing
// pass.
type sessionPmTypeInput struct {
	merchantID        string
	attemptID         string
	routingAlgorithm  types.MerchantAccountRoutingAlgorithm
	backendInput      types.BackendInput
	allowedConnectors map[types.ConnectorName]types.GetToken
	profileID         string
}

// PerformSessionFlowRouting routes each payment-method-type partition of the
// session's candidates independently and returns the surviving choices per
// type. Partitions whose selection comes up empty are dropped, not errors.
//
// Volume-split algorithms here are seeded with the attempt id so retries of
// the same attempt select the same connector. A volume split produced by an
// advanced program is drawn unseeded.
func (r *Router) PerformSessionFlowRouting(ctx context.Context, sessionInput SessionFlowRoutingInput, transactionType types.TransactionType) (map[types.PaymentMethodType][]types.SessionRoutingChoice, error) {
	if sessionInput.PaymentIntent.ProfileID == nil {
		return nil, newRoutingError(ErrCodeProfileIDMissing, "payment intent carries no profile id")
	}
	profileID := *sessionInput.PaymentIntent.ProfileID

	profile, err := r.store.FindBusinessProfileByProfileID(ctx, profileID)
	if err != nil {
		return nil, wrapRouting(err, ErrCodeProfileNotFound, "business profile not found")
	}

	var routingAlgorithm types.MerchantAccountRoutingAlgorithm
	if len(profile.RoutingAlgorithm) > 0 {
		if err := json.Unmarshal(profile.RoutingAlgorithm, &routingAlgorithm); err != nil {
			return nil, wrapRouting(err, ErrCodeInvalidRoutingAlgorithmStructure, "unable to parse profile routing algorithm")
		}
	}

	if sessionInput.PaymentIntent.Currency == nil {
		return nil, missingFieldError("currency")
	}

	payment := types.PaymentInput{
		Amount:             sessionInput.PaymentIntent.Amount,
		Currency:           *sessionInput.PaymentIntent.Currency,
		AuthenticationType: sessionInput.PaymentAttempt.AuthenticationType,
		BusinessCountry:    sessionInput.PaymentIntent.BusinessCountry,
		BillingCountry:     sessionInput.Country,
		BusinessLabel:      sessionInput.PaymentIntent.BusinessLabel,
		SetupFutureUsage:   sessionInput.PaymentIntent.SetupFutureUsage,
	}
	if sessionInput.PaymentAttempt.CaptureMethod != nil {
		payment.CaptureMethod = sessionInput.PaymentAttempt.CaptureMethod.dslCaptureMethod()
	}

	backendInput := types.BackendInput{
		Payment:  payment,
		Metadata: parseRoutingMetadata(sessionInput.PaymentIntent.Metadata, r.logger),
	}

	// Partition the candidates by instrument type, keeping each connector's
	// token kind for the final allow check.
	pmTypeMap := make(map[types.PaymentMethodType]map[types.ConnectorName]types.GetToken)
	for _, connectorData := range sessionInput.Chosen {
		if pmTypeMap[connectorData.PaymentMethodType] == nil {
			pmTypeMap[connectorData.PaymentMethodType] = make(map[types.ConnectorName]types.GetToken)
		}
		pmTypeMap[connectorData.PaymentMethodType][connectorData.Connector.Connector] = connectorData.GetToken
	}

	result := make(map[types.PaymentMethodType][]types.SessionRoutingChoice)
	for pmType, allowedConnectors := range pmTypeMap {
		pm := pmType.Method()
		partitionInput := backendInput
		partitionInput.PaymentMethod = types.PaymentMethodInput{
			PaymentMethod:     &pm,
			PaymentMethodType: &pmType,
		}

		pmInput := sessionPmTypeInput{
			merchantID:        sessionInput.MerchantID,
			attemptID:         sessionInput.PaymentAttempt.AttemptID,
			routingAlgorithm:  routingAlgorithm,
			backendInput:      partitionInput,
			allowedConnectors: allowedConnectors,
			profileID:         profileID,
		}

		selection, err := r.performSessionRoutingForPmType(ctx, pmInput, transactionType)
		if err != nil {
			return nil, err
		}

		var choices []types.SessionRoutingChoice
		for _, selected := range selection {
			getToken, ok := pmInput.allowedConnectors[selected.Connector]
			if !ok {
				continue
			}
			choices = append(choices, types.SessionRoutingChoice{
				Connector:           selected.Connector,
				MerchantConnectorID: selected.MerchantConnectorID,
				GetToken:            getToken,
				PaymentMethodType:   pmType,
			})
		}
		if len(choices) > 0 {
			result[pmType] = choices
		}
	}

	return result, nil
}

// performSessionRoutingForPmType resolves and filters candidates for one
// partition. An empty final selection means the partition is dropped.
func (r *Router) performSessionRoutingForPmType(ctx context.Context, pmInput sessionPmTypeInput, transactionType types.TransactionType) ([]types.RoutableConnectorChoice, error) {
	var chosenConnectors []types.RoutableConnectorChoice

	algorithmRef := pmInput.routingAlgorithm.V1
	if algorithmRef.AlgorithmID != nil {
		compiled, err := r.ensureAlgorithmCached(ctx, pmInput.merchantID, *algorithmRef.AlgorithmID, pmInput.profileID, transactionType)
		if err != nil {
			return nil, err
		}

		switch compiled.Kind {
		case types.AlgorithmSingle:
			chosenConnectors = []types.RoutableConnectorChoice{*compiled.Single}
		case types.AlgorithmPriority:
			chosenConnectors = append([]types.RoutableConnectorChoice(nil), compiled.Priority...)
		case types.AlgorithmVolumeSplit:
			chosenConnectors, err = PerformVolumeSplit(compiled.VolumeSplit, pmInput.attemptID)
			if err != nil {
				return nil, wrapRouting(err, ErrCodeConnectorSelectionFailed, "volume split connector selection failed")
			}
		case types.AlgorithmAdvanced:
			chosenConnectors, err = executeDslAndGetConnector(pmInput.backendInput, compiled.Interpreter, "")
			if err != nil {
				return nil, err
			}
		default:
			return nil, newRoutingError(ErrCodeInvalidRoutingAlgorithmStructure, "compiled algorithm has unknown kind")
		}
	} else {
		fallback, err := r.store.GetMerchantDefaultConfig(ctx, pmInput.profileID, transactionType)
		if err != nil {
			return nil, wrapRouting(err, ErrCodeFallbackConfigFetchFailed, "unable to fetch merchant default config")
		}
		chosenConnectors = fallback
	}

	finalSelection, err := r.performCgraphFiltering(ctx, pmInput.merchantID, chosenConnectors, pmInput.backendInput, nil, pmInput.profileID, transactionType)
	if err != nil {
		return nil, err
	}

	if len(finalSelection) == 0 {
		fallback, err := r.store.GetMerchantDefaultConfig(ctx, pmInput.profileID, transactionType)
		if err != nil {
			return nil, wrapRouting(err, ErrCodeFallbackConfigFetchFailed, "unable to fetch merchant default config")
		}
		finalSelection, err = r.performCgraphFiltering(ctx, pmInput.merchantID, fallback, pmInput.backendInput, nil, pmInput.profileID, transactionType)
		if err != nil {
			return nil, err
		}
	}

	return finalSelection, nil
}
