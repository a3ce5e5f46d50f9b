package types

import "fmt"

// ConnectorName identifies a downstream payment processor.
type ConnectorName string

const (
	ConnectorAdyen       ConnectorName = "adyen"
	ConnectorAirwallex   ConnectorName = "airwallex"
	ConnectorAuthorizedotnet ConnectorName = "authorizedotnet"
	ConnectorBraintree   ConnectorName = "braintree"
	ConnectorCheckout    ConnectorName = "checkout"
	ConnectorCybersource ConnectorName = "cybersource"
	ConnectorGlobalpay   ConnectorName = "globalpay"
	ConnectorKlarnaConn  ConnectorName = "klarna"
	ConnectorMollie      ConnectorName = "mollie"
	ConnectorMultisafepay ConnectorName = "multisafepay"
	ConnectorNuvei       ConnectorName = "nuvei"
	ConnectorPaypalConn  ConnectorName = "paypal"
	ConnectorPayu        ConnectorName = "payu"
	ConnectorRapyd       ConnectorName = "rapyd"
	ConnectorShift4      ConnectorName = "shift4"
	ConnectorStripe      ConnectorName = "stripe"
	ConnectorTrustpay    ConnectorName = "trustpay"
	ConnectorWorldline   ConnectorName = "worldline"
	ConnectorWorldpay    ConnectorName = "worldpay"
	ConnectorWise        ConnectorName = "wise"
)

var knownConnectors = map[ConnectorName]struct{}{
	ConnectorAdyen:           {},
	ConnectorAirwallex:       {},
	ConnectorAuthorizedotnet: {},
	ConnectorBraintree:       {},
	ConnectorCheckout:        {},
	ConnectorCybersource:     {},
	ConnectorGlobalpay:       {},
	ConnectorKlarnaConn:      {},
	ConnectorMollie:          {},
	ConnectorMultisafepay:    {},
	ConnectorNuvei:           {},
	ConnectorPaypalConn:      {},
	ConnectorPayu:            {},
	ConnectorRapyd:           {},
	ConnectorShift4:          {},
	ConnectorStripe:          {},
	ConnectorTrustpay:        {},
	ConnectorWorldline:       {},
	ConnectorWorldpay:        {},
	ConnectorWise:            {},
}

// ParseConnectorName validates a connector name against the known set.
func ParseConnectorName(s string) (ConnectorName, error) {
	name := ConnectorName(s)
	if _, ok := knownConnectors[name]; !ok {
		return "", fmt.Errorf("unknown connector: %q", s)
	}
	return name, nil
}

func (c ConnectorName) String() string { return string(c) }

// ConnectorType classifies what a merchant connector account is for.
type ConnectorType string

const (
	ConnectorTypePaymentProcessor        ConnectorType = "payment_processor"
	ConnectorTypePaymentVas              ConnectorType = "payment_vas"
	ConnectorTypePaymentMethodAuth       ConnectorType = "payment_method_auth"
	ConnectorTypePayoutProcessor         ConnectorType = "payout_processor"
	ConnectorTypeAuthenticationProcessor ConnectorType = "authentication_processor"
)
