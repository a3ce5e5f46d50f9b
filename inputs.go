package routing

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/switchpay/routing/types"
)

// routingParametersKey is the metadata field carrying routing key/values.
const routingParametersKey = "routing_parameters"

// parseRoutingMetadata extracts routing_parameters from an opaque metadata
// document. Metadata is user-controlled and must not block routing: any
// parse failure is logged and treated as absent.
func parseRoutingMetadata(raw json.RawMessage, logger zerolog.Logger) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		logger.Warn().Err(err).Msg("unable to parse routing_parameters from metadata, ignoring")
		return nil
	}
	inner, ok := outer[routingParametersKey]
	if !ok {
		return nil
	}
	var params map[string]string
	if err := json.Unmarshal(inner, &params); err != nil {
		logger.Warn().Err(err).Msg("unable to parse routing_parameters from metadata, ignoring")
		return nil
	}
	return params
}

// MakeDslInput projects a payment into the normalized BackendInput consumed
// by the rule interpreter and the constraint graph.
func (r *Router) MakeDslInput(paymentData *PaymentData) (types.BackendInput, error) {
	mandate := types.MandateData{}
	if paymentData.SetupMandate != nil {
		if acceptance := paymentData.SetupMandate.CustomerAcceptance; acceptance != nil {
			var out types.MandateAcceptanceType
			switch acceptance.AcceptanceType {
			case AcceptanceOffline:
				out = types.MandateAcceptanceOffline
			default:
				out = types.MandateAcceptanceOnline
			}
			mandate.MandateAcceptanceType = &out
		}
		if kind := paymentData.SetupMandate.MandateType; kind != nil {
			var out types.MandateType
			switch *kind {
			case MandateDataMultiUse:
				out = types.MandateMultiUse
			default:
				out = types.MandateSingleUse
			}
			mandate.MandateType = &out
		}
	}
	paymentType := types.PaymentTypeNonMandate
	if paymentData.SetupMandate != nil {
		paymentType = types.PaymentTypeSetupMandate
	}
	mandate.PaymentType = &paymentType

	paymentMethod := types.PaymentMethodInput{
		PaymentMethod:     paymentData.PaymentAttempt.PaymentMethod,
		PaymentMethodType: paymentData.PaymentAttempt.PaymentMethodType,
	}
	if card := cardData(paymentData.PaymentMethodData); card != nil {
		paymentMethod.CardNetwork = card.CardNetwork
	}

	payment := types.PaymentInput{
		Amount:           paymentData.PaymentIntent.Amount,
		Currency:         paymentData.Currency,
		CardBin:          cardBin(paymentData.PaymentMethodData),
		BusinessCountry:  paymentData.PaymentIntent.BusinessCountry,
		BusinessLabel:    paymentData.PaymentIntent.BusinessLabel,
		SetupFutureUsage: paymentData.PaymentIntent.SetupFutureUsage,
		AuthenticationType: paymentData.PaymentAttempt.AuthenticationType,
	}
	if paymentData.PaymentAttempt.CaptureMethod != nil {
		payment.CaptureMethod = paymentData.PaymentAttempt.CaptureMethod.dslCaptureMethod()
	}
	if paymentData.PaymentMethodBilling != nil {
		payment.BillingCountry = paymentData.PaymentMethodBilling.Country
	}

	return types.BackendInput{
		Payment:       payment,
		PaymentMethod: paymentMethod,
		Mandate:       mandate,
		Metadata:      parseRoutingMetadata(paymentData.PaymentIntent.Metadata, r.logger),
	}, nil
}

// MakeDslInputForPayouts projects a payout into the normalized BackendInput.
func (r *Router) MakeDslInputForPayouts(payoutData *PayoutData) (types.BackendInput, error) {
	payment := types.PaymentInput{
		Amount:          payoutData.Payouts.Amount,
		Currency:        payoutData.Payouts.DestinationCurrency,
		BusinessCountry: payoutData.PayoutAttempt.BusinessCountry,
		BusinessLabel:   payoutData.PayoutAttempt.BusinessLabel,
	}
	if payoutData.BillingAddress != nil {
		payment.BillingCountry = payoutData.BillingAddress.Country
	}

	paymentMethod := types.PaymentMethodInput{}
	if payoutData.Payouts.PayoutType != nil {
		paymentMethod.PaymentMethod = payoutData.Payouts.PayoutType.dslPaymentMethod()
	}
	if payoutData.PayoutMethodData != nil {
		paymentMethod.PaymentMethodType = payoutData.PayoutMethodData.dslPaymentMethodType()
	}

	return types.BackendInput{
		Payment:       payment,
		PaymentMethod: paymentMethod,
		Mandate:       types.MandateData{},
		Metadata:      parseRoutingMetadata(payoutData.Payouts.Metadata, r.logger),
	}, nil
}

// makeBackendInput dispatches on the transaction side.
func (r *Router) makeBackendInput(transactionData TransactionData) (types.BackendInput, error) {
	if transactionData.Payout != nil {
		return r.MakeDslInputForPayouts(transactionData.Payout)
	}
	return r.MakeDslInput(transactionData.Payment)
}

// MakeDslInputForSurcharge projects a payment attempt and intent into a
// BackendInput for surcharge rule evaluation. Instrument and mandate data are
// deliberately left absent.
func (r *Router) MakeDslInputForSurcharge(attempt *PaymentAttempt, intent *PaymentIntent, billing *Address) (types.BackendInput, error) {
	if attempt.Currency == nil {
		return types.BackendInput{}, missingFieldError("currency")
	}

	payment := types.PaymentInput{
		Amount:             attempt.Amount,
		Currency:           *attempt.Currency,
		AuthenticationType: attempt.AuthenticationType,
		BusinessCountry:    intent.BusinessCountry,
		BusinessLabel:      intent.BusinessLabel,
		SetupFutureUsage:   intent.SetupFutureUsage,
	}
	if attempt.CaptureMethod != nil {
		payment.CaptureMethod = attempt.CaptureMethod.dslCaptureMethod()
	}
	if billing != nil {
		payment.BillingCountry = billing.Country
	}

	return types.BackendInput{
		Payment:  payment,
		Metadata: parseRoutingMetadata(intent.Metadata, r.logger),
	}, nil
}

func cardData(data *PaymentMethodData) *Card {
	if data == nil {
		return nil
	}
	return data.Card
}

// cardBin derives the first six digits of the card number, or nil when no
// card is present.
func cardBin(data *PaymentMethodData) *string {
	card := cardData(data)
	if card == nil || card.CardNumber == "" {
		return nil
	}
	bin := card.CardNumber
	if len(bin) > 6 {
		bin = bin[:6]
	}
	return &bin
}
