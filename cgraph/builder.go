package cgraph

import (
	"github.com/pkg/errors"

	"github.com/switchpay/routing/config"
	"github.com/switchpay/routing/types"
)

// BuildGraph compiles a constraint graph from a merchant's connector accounts
// and the global payment-method filters.
//
// Accounts are narrowed before any nodes are emitted: disabled accounts are
// dropped, then accounts whose connector type does not serve the transaction
// type, then accounts bound to a different profile. Each surviving account
// contributes one root predicate under its connector, the disjunction of its
// declared instrument capabilities conjoined with the global filter.
func BuildGraph(
	accounts []types.MerchantConnectorAccount,
	filters config.CountryCurrencyFilter,
	transactionType types.TransactionType,
	profileID *string,
) (*Graph, error) {
	builder := NewGraphBuilder()

	for _, account := range accounts {
		if account.Disabled {
			continue
		}
		if !connectorTypeServes(account.ConnectorType, transactionType) {
			continue
		}
		if profileID != nil && account.ProfileID != nil && *account.ProfileID != *profileID {
			continue
		}

		root, ok, err := buildAccountRoot(builder, account, filters)
		if err != nil {
			return nil, errors.Wrapf(err, "building constraint nodes for account %s", account.MerchantConnectorID)
		}
		if !ok {
			continue
		}
		builder.AddConnectorRoot(account.ConnectorName, root)
	}

	return builder.Build(), nil
}

// connectorTypeServes implements the transaction-type partition: payments keep
// only payment processors, payouts keep only payout processors.
func connectorTypeServes(ct types.ConnectorType, tt types.TransactionType) bool {
	switch tt {
	case types.TransactionPayout:
		return ct == types.ConnectorTypePayoutProcessor
	default:
		switch ct {
		case types.ConnectorTypePaymentVas,
			types.ConnectorTypePaymentMethodAuth,
			types.ConnectorTypePayoutProcessor,
			types.ConnectorTypeAuthenticationProcessor:
			return false
		}
		return true
	}
}

// buildAccountRoot emits the predicate tree for one account. Returns ok=false
// when the account declares no usable capabilities.
func buildAccountRoot(
	builder *GraphBuilder,
	account types.MerchantConnectorAccount,
	filters config.CountryCurrencyFilter,
) (NodeID, bool, error) {
	globalFilter, hasGlobal := filters.ForConnector(account.ConnectorName)

	var capabilities []NodeID
	for _, enabled := range account.PaymentMethodsEnabled {
		pmNode := builder.MakeValueNode(Value{Key: KeyPaymentMethod, Value: string(enabled.PaymentMethod)})

		for _, pmt := range enabled.PaymentMethodTypes {
			conjuncts := []NodeID{
				pmNode,
				builder.MakeValueNode(Value{Key: KeyPaymentMethodType, Value: string(pmt.PaymentMethodType)}),
			}

			if len(pmt.CardNetworks) > 0 {
				networks := make([]NodeID, 0, len(pmt.CardNetworks))
				for _, network := range pmt.CardNetworks {
					networks = append(networks, builder.MakeValueNode(Value{Key: KeyCardNetwork, Value: string(network)}))
				}
				conjuncts = append(conjuncts, builder.MakeAnyNode(networks))
			}

			if n, ok := currencyConstraint(builder, pmt.AcceptedCurrencies); ok {
				conjuncts = append(conjuncts, n)
			}
			if n, ok := countryConstraint(builder, pmt.AcceptedCountries); ok {
				conjuncts = append(conjuncts, n)
			}
			if pmt.MinimumAmount != nil || pmt.MaximumAmount != nil {
				conjuncts = append(conjuncts, builder.MakeAmountRangeNode(pmt.MinimumAmount, pmt.MaximumAmount))
			}

			if hasGlobal {
				if entry, ok := globalFilter[pmt.PaymentMethodType]; ok {
					if n, ok := filterEntryConstraint(builder, entry); ok {
						conjuncts = append(conjuncts, n)
					}
				}
			}

			capabilities = append(capabilities, builder.MakeAllNode(conjuncts))
		}
	}

	if len(capabilities) == 0 {
		return 0, false, nil
	}
	return builder.MakeAnyNode(capabilities), true, nil
}

// currencyConstraint lowers an accepted-currencies declaration into nodes.
// Returns ok=false when the declaration does not constrain anything.
func currencyConstraint(builder *GraphBuilder, accepted *types.AcceptedCurrencies) (NodeID, bool) {
	if accepted == nil || accepted.Kind == types.AcceptAll || len(accepted.List) == 0 {
		return 0, false
	}
	leaves := make([]NodeID, 0, len(accepted.List))
	for _, currency := range accepted.List {
		leaves = append(leaves, builder.MakeValueNode(Value{Key: KeyCurrency, Value: string(currency)}))
	}
	anyNode := builder.MakeAnyNode(leaves)
	if accepted.Kind == types.AcceptDisableOnly {
		return builder.MakeNotNode(anyNode), true
	}
	return anyNode, true
}

// countryConstraint lowers an accepted-countries declaration into nodes over
// the billing country dimension.
func countryConstraint(builder *GraphBuilder, accepted *types.AcceptedCountries) (NodeID, bool) {
	if accepted == nil || accepted.Kind == types.AcceptAll || len(accepted.List) == 0 {
		return 0, false
	}
	leaves := make([]NodeID, 0, len(accepted.List))
	for _, country := range accepted.List {
		leaves = append(leaves, builder.MakeValueNode(Value{Key: KeyBillingCountry, Value: string(country)}))
	}
	anyNode := builder.MakeAnyNode(leaves)
	if accepted.Kind == types.AcceptDisableOnly {
		return builder.MakeNotNode(anyNode), true
	}
	return anyNode, true
}

// filterEntryConstraint lowers one global pm_filters entry: the conjunction
// of its currency and country allow-sets.
func filterEntryConstraint(builder *GraphBuilder, entry config.FilterEntry) (NodeID, bool) {
	var conjuncts []NodeID
	if len(entry.Currency) > 0 {
		leaves := make([]NodeID, 0, len(entry.Currency))
		for _, currency := range entry.Currency {
			leaves = append(leaves, builder.MakeValueNode(Value{Key: KeyCurrency, Value: string(currency)}))
		}
		conjuncts = append(conjuncts, builder.MakeAnyNode(leaves))
	}
	if len(entry.Country) > 0 {
		leaves := make([]NodeID, 0, len(entry.Country))
		for _, country := range entry.Country {
			leaves = append(leaves, builder.MakeValueNode(Value{Key: KeyBillingCountry, Value: string(country)}))
		}
		conjuncts = append(conjuncts, builder.MakeAnyNode(leaves))
	}
	if len(conjuncts) == 0 {
		return 0, false
	}
	if len(conjuncts) == 1 {
		return conjuncts[0], true
	}
	return builder.MakeAllNode(conjuncts), true
}
