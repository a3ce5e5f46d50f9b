package types

import "encoding/json"

// AcceptanceKind says whether an accept-list enables or disables its entries.
type AcceptanceKind string

const (
	AcceptEnableOnly  AcceptanceKind = "enable_only"
	AcceptDisableOnly AcceptanceKind = "disable_only"
	AcceptAll         AcceptanceKind = "all_accepted"
)

// AcceptedCurrencies scopes a payment method type to a currency set.
type AcceptedCurrencies struct {
	Kind AcceptanceKind `json:"type"`
	List []Currency     `json:"list,omitempty"`
}

// AcceptedCountries scopes a payment method type to a country set.
type AcceptedCountries struct {
	Kind AcceptanceKind `json:"type"`
	List []Country      `json:"list,omitempty"`
}

// RequestPaymentMethodType is one instrument a merchant connector account
// declares support for, with its currency and country scoping.
type RequestPaymentMethodType struct {
	PaymentMethodType  PaymentMethodType   `json:"payment_method_type"`
	CardNetworks       []CardNetwork       `json:"card_networks,omitempty"`
	AcceptedCurrencies *AcceptedCurrencies `json:"accepted_currencies,omitempty"`
	AcceptedCountries  *AcceptedCountries  `json:"accepted_countries,omitempty"`
	MinimumAmount      *int64              `json:"minimum_amount,omitempty"`
	MaximumAmount      *int64              `json:"maximum_amount,omitempty"`
}

// PaymentMethodsEnabled groups the declared instruments under one family.
type PaymentMethodsEnabled struct {
	PaymentMethod      PaymentMethod              `json:"payment_method"`
	PaymentMethodTypes []RequestPaymentMethodType `json:"payment_method_types,omitempty"`
}

// MerchantConnectorAccount is a merchant's credentialed binding to one
// connector, with declared capabilities and an enabled flag.
type MerchantConnectorAccount struct {
	MerchantConnectorID   string                  `json:"merchant_connector_id"`
	MerchantID            string                  `json:"merchant_id"`
	ConnectorName         ConnectorName           `json:"connector_name"`
	ConnectorType         ConnectorType           `json:"connector_type"`
	ProfileID             *string                 `json:"profile_id,omitempty"`
	Disabled              bool                    `json:"disabled"`
	PaymentMethodsEnabled []PaymentMethodsEnabled `json:"payment_methods_enabled,omitempty"`
}

// BusinessProfile is the sub-scope within a merchant owning its own routing
// configuration. RoutingAlgorithm holds the raw reference document, decoded
// lazily into a MerchantAccountRoutingAlgorithm.
type BusinessProfile struct {
	ProfileID        string          `json:"profile_id"`
	MerchantID       string          `json:"merchant_id"`
	RoutingAlgorithm json.RawMessage `json:"routing_algorithm,omitempty"`
}
