package routing

import (
	"encoding/json"

	"github.com/switchpay/routing/types"
)

// The envelope types below mirror the storage vocabulary of the surrounding
// payment state machine. The input builders in inputs.go normalize them into
// the DSL vocabulary of types.BackendInput.

// CaptureMethod is the storage vocabulary for capture scheduling. It is a
// superset of the DSL vocabulary: scheduled and multiple-manual captures have
// no DSL equivalent and project to absent.
type CaptureMethod string

const (
	CaptureMethodAutomatic      CaptureMethod = "automatic"
	CaptureMethodManual         CaptureMethod = "manual"
	CaptureMethodManualMultiple CaptureMethod = "manual_multiple"
	CaptureMethodScheduled      CaptureMethod = "scheduled"
)

// dslCaptureMethod maps the storage vocabulary into the DSL's, dropping
// variants the rule language does not know.
func (c CaptureMethod) dslCaptureMethod() *types.CaptureMethod {
	switch c {
	case CaptureMethodAutomatic:
		out := types.CaptureAutomatic
		return &out
	case CaptureMethodManual:
		out := types.CaptureManual
		return &out
	default:
		return nil
	}
}

// AcceptanceType is the storage vocabulary for how a mandate was accepted.
type AcceptanceType string

const (
	AcceptanceOnline  AcceptanceType = "online"
	AcceptanceOffline AcceptanceType = "offline"
)

// CustomerAcceptance records the customer's mandate consent.
type CustomerAcceptance struct {
	AcceptanceType AcceptanceType `json:"acceptance_type"`
}

// MandateDataKind is the storage vocabulary for mandate reuse.
type MandateDataKind string

const (
	MandateDataSingleUse MandateDataKind = "single_use"
	MandateDataMultiUse  MandateDataKind = "multi_use"
)

// MandateSetup is the mandate being established with a payment, if any.
type MandateSetup struct {
	CustomerAcceptance *CustomerAcceptance `json:"customer_acceptance,omitempty"`
	MandateType        *MandateDataKind    `json:"mandate_type,omitempty"`
}

// Address is the slice of a billing address routing cares about.
type Address struct {
	Country *types.Country `json:"country,omitempty"`
}

// Card is the card detail slice consumed for routing: the number (for BIN
// derivation) and the network.
type Card struct {
	CardNumber  string             `json:"card_number"`
	CardNetwork *types.CardNetwork `json:"card_network,omitempty"`
}

// PaymentMethodData carries the instrument detail attached to a payment.
// Exactly one field is set.
type PaymentMethodData struct {
	Card *Card `json:"card,omitempty"`
}

// PaymentIntent is the intent-level slice of a payment.
type PaymentIntent struct {
	PaymentID        string                  `json:"payment_id"`
	Amount           int64                   `json:"amount"`
	Currency         *types.Currency         `json:"currency,omitempty"`
	ProfileID        *string                 `json:"profile_id,omitempty"`
	BusinessCountry  *types.Country          `json:"business_country,omitempty"`
	BusinessLabel    *string                 `json:"business_label,omitempty"`
	SetupFutureUsage *types.SetupFutureUsage `json:"setup_future_usage,omitempty"`
	Metadata         json.RawMessage         `json:"metadata,omitempty"`
}

// PaymentAttempt is the attempt-level slice of a payment.
type PaymentAttempt struct {
	AttemptID          string                    `json:"attempt_id"`
	PaymentID          string                    `json:"payment_id"`
	Amount             int64                     `json:"amount"`
	Currency           *types.Currency           `json:"currency,omitempty"`
	AuthenticationType *types.AuthenticationType `json:"authentication_type,omitempty"`
	CaptureMethod      *CaptureMethod            `json:"capture_method,omitempty"`
	PaymentMethod      *types.PaymentMethod      `json:"payment_method,omitempty"`
	PaymentMethodType  *types.PaymentMethodType  `json:"payment_method_type,omitempty"`
}

// PaymentData is the payment-side routing envelope.
type PaymentData struct {
	PaymentIntent        PaymentIntent
	PaymentAttempt       PaymentAttempt
	Currency             types.Currency
	SetupMandate         *MandateSetup
	PaymentMethodData    *PaymentMethodData
	PaymentMethodBilling *Address
}

// PayoutType is the storage vocabulary for the payout instrument family.
type PayoutType string

const (
	PayoutTypeCard   PayoutType = "card"
	PayoutTypeBank   PayoutType = "bank"
	PayoutTypeWallet PayoutType = "wallet"
)

// dslPaymentMethod maps a payout type into the DSL payment method family.
func (p PayoutType) dslPaymentMethod() *types.PaymentMethod {
	var out types.PaymentMethod
	switch p {
	case PayoutTypeCard:
		out = types.PaymentMethodCard
	case PayoutTypeBank:
		out = types.PaymentMethodBankTransfer
	case PayoutTypeWallet:
		out = types.PaymentMethodWallet
	default:
		return nil
	}
	return &out
}

// PayoutMethodData is the storage vocabulary for the concrete payout rail.
type PayoutMethodData string

const (
	PayoutMethodCard   PayoutMethodData = "card"
	PayoutMethodAch    PayoutMethodData = "ach"
	PayoutMethodBacs   PayoutMethodData = "bacs"
	PayoutMethodSepa   PayoutMethodData = "sepa"
	PayoutMethodPaypal PayoutMethodData = "paypal"
)

// dslPaymentMethodType maps a payout rail into the DSL instrument type.
func (p PayoutMethodData) dslPaymentMethodType() *types.PaymentMethodType {
	var out types.PaymentMethodType
	switch p {
	case PayoutMethodCard:
		out = types.PaymentMethodTypeDebit
	case PayoutMethodAch:
		out = types.PaymentMethodTypeAch
	case PayoutMethodBacs:
		out = types.PaymentMethodTypeBacs
	case PayoutMethodSepa:
		out = types.PaymentMethodTypeSepa
	case PayoutMethodPaypal:
		out = types.PaymentMethodTypePaypal
	default:
		return nil
	}
	return &out
}

// Payouts is the payout-level slice of a payout.
type Payouts struct {
	PayoutID            string          `json:"payout_id"`
	Amount              int64           `json:"amount"`
	DestinationCurrency types.Currency  `json:"destination_currency"`
	PayoutType          *PayoutType     `json:"payout_type,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

// PayoutAttempt is the attempt-level slice of a payout.
type PayoutAttempt struct {
	PayoutAttemptID string         `json:"payout_attempt_id"`
	ProfileID       string         `json:"profile_id"`
	BusinessCountry *types.Country `json:"business_country,omitempty"`
	BusinessLabel   *string        `json:"business_label,omitempty"`
}

// PayoutData is the payout-side routing envelope.
type PayoutData struct {
	Payouts          Payouts
	PayoutAttempt    PayoutAttempt
	BillingAddress   *Address
	PayoutMethodData *PayoutMethodData
}

// TransactionData is the envelope handed to the orchestrator: exactly one of
// Payment or Payout is set.
type TransactionData struct {
	Payment *PaymentData
	Payout  *PayoutData
}

// TransactionType derives the transaction type from which side is set.
func (t TransactionData) TransactionType() types.TransactionType {
	if t.Payout != nil {
		return types.TransactionPayout
	}
	return types.TransactionPayment
}

// profileID resolves the owning profile. Payments may lack one, which is a
// routing error; payouts always carry one.
func (t TransactionData) profileID() (string, error) {
	if t.Payout != nil {
		return t.Payout.PayoutAttempt.ProfileID, nil
	}
	if t.Payment == nil || t.Payment.PaymentIntent.ProfileID == nil {
		return "", newRoutingError(ErrCodeProfileIDMissing, "transaction data carries no profile id")
	}
	return *t.Payment.PaymentIntent.ProfileID, nil
}
