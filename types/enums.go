package types

import (
	"fmt"
	"strings"
)

// TransactionType selects which connectors and which cache namespace apply.
type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionPayout  TransactionType = "payout"
)

// PaymentMethod is the coarse payment instrument family.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodPayLater     PaymentMethod = "pay_later"
	PaymentMethodBankRedirect PaymentMethod = "bank_redirect"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodBankDebit    PaymentMethod = "bank_debit"
	PaymentMethodCrypto       PaymentMethod = "crypto"
	PaymentMethodReward       PaymentMethod = "reward"
	PaymentMethodUpi          PaymentMethod = "upi"
	PaymentMethodVoucher      PaymentMethod = "voucher"
	PaymentMethodGiftCard     PaymentMethod = "gift_card"
)

// PaymentMethodType is the concrete payment instrument within a family.
type PaymentMethodType string

const (
	PaymentMethodTypeCredit       PaymentMethodType = "credit"
	PaymentMethodTypeDebit        PaymentMethodType = "debit"
	PaymentMethodTypeApplePay     PaymentMethodType = "apple_pay"
	PaymentMethodTypeGooglePay    PaymentMethodType = "google_pay"
	PaymentMethodTypePaypal       PaymentMethodType = "paypal"
	PaymentMethodTypeKlarna       PaymentMethodType = "klarna"
	PaymentMethodTypeAffirm       PaymentMethodType = "affirm"
	PaymentMethodTypeAfterpay     PaymentMethodType = "afterpay_clearpay"
	PaymentMethodTypeIdeal        PaymentMethodType = "ideal"
	PaymentMethodTypeSofort       PaymentMethodType = "sofort"
	PaymentMethodTypeGiropay      PaymentMethodType = "giropay"
	PaymentMethodTypeEps          PaymentMethodType = "eps"
	PaymentMethodTypeAch          PaymentMethodType = "ach"
	PaymentMethodTypeSepa         PaymentMethodType = "sepa"
	PaymentMethodTypeBacs         PaymentMethodType = "bacs"
	PaymentMethodTypeUpiCollect   PaymentMethodType = "upi_collect"
	PaymentMethodTypeCryptoNative PaymentMethodType = "crypto_currency"
	PaymentMethodTypeEvoucher     PaymentMethodType = "evoucher"
	PaymentMethodTypeGiftCardType PaymentMethodType = "gift_card"
)

// methodForType maps a concrete instrument back to its family. The session
// flow partitions candidates per payment method type and needs the owning
// family to complete the DSL input.
var methodForType = map[PaymentMethodType]PaymentMethod{
	PaymentMethodTypeCredit:       PaymentMethodCard,
	PaymentMethodTypeDebit:        PaymentMethodCard,
	PaymentMethodTypeApplePay:     PaymentMethodWallet,
	PaymentMethodTypeGooglePay:    PaymentMethodWallet,
	PaymentMethodTypePaypal:       PaymentMethodWallet,
	PaymentMethodTypeKlarna:       PaymentMethodPayLater,
	PaymentMethodTypeAffirm:       PaymentMethodPayLater,
	PaymentMethodTypeAfterpay:     PaymentMethodPayLater,
	PaymentMethodTypeIdeal:        PaymentMethodBankRedirect,
	PaymentMethodTypeSofort:       PaymentMethodBankRedirect,
	PaymentMethodTypeGiropay:      PaymentMethodBankRedirect,
	PaymentMethodTypeEps:          PaymentMethodBankRedirect,
	PaymentMethodTypeAch:          PaymentMethodBankDebit,
	PaymentMethodTypeSepa:         PaymentMethodBankDebit,
	PaymentMethodTypeBacs:         PaymentMethodBankDebit,
	PaymentMethodTypeUpiCollect:   PaymentMethodUpi,
	PaymentMethodTypeCryptoNative: PaymentMethodCrypto,
	PaymentMethodTypeEvoucher:     PaymentMethodVoucher,
	PaymentMethodTypeGiftCardType: PaymentMethodGiftCard,
}

// Method returns the payment method family owning this type.
// Unknown types fall back to card, the most common family.
func (t PaymentMethodType) Method() PaymentMethod {
	if pm, ok := methodForType[t]; ok {
		return pm
	}
	return PaymentMethodCard
}

// Currency is an ISO 4217 alphabetic currency code, uppercase.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyINR Currency = "INR"
	CurrencyJPY Currency = "JPY"
	CurrencyAUD Currency = "AUD"
	CurrencyCAD Currency = "CAD"
	CurrencySGD Currency = "SGD"
	CurrencyCHF Currency = "CHF"
	CurrencySEK Currency = "SEK"
	CurrencyNOK Currency = "NOK"
	CurrencyDKK Currency = "DKK"
	CurrencyPLN Currency = "PLN"
	CurrencyBRL Currency = "BRL"
	CurrencyMXN Currency = "MXN"
	CurrencyAED Currency = "AED"
	CurrencyHKD Currency = "HKD"
	CurrencyNZD Currency = "NZD"
	CurrencyCNY Currency = "CNY"
)

// Country is an ISO 3166-1 alpha-2 country code, uppercase.
type Country string

// CountryFromAlpha2 validates and normalizes a two-letter country code.
func CountryFromAlpha2(code string) (Country, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", fmt.Errorf("invalid alpha-2 country code: %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid alpha-2 country code: %q", code)
		}
	}
	return Country(code), nil
}

// AuthenticationType is the 3DS posture requested for a payment.
type AuthenticationType string

const (
	AuthenticationThreeDs   AuthenticationType = "three_ds"
	AuthenticationNoThreeDs AuthenticationType = "no_three_ds"
)

// CaptureMethod describes how funds are captured after authorization. This
// is the rule-language vocabulary; storage-side capture variants with no rule
// equivalent project to absent.
type CaptureMethod string

const (
	CaptureAutomatic CaptureMethod = "automatic"
	CaptureManual    CaptureMethod = "manual"
)

// MandateAcceptanceType records how the customer accepted a mandate.
type MandateAcceptanceType string

const (
	MandateAcceptanceOnline  MandateAcceptanceType = "online"
	MandateAcceptanceOffline MandateAcceptanceType = "offline"
)

// MandateType is the reuse policy of a mandate.
type MandateType string

const (
	MandateSingleUse MandateType = "single_use"
	MandateMultiUse  MandateType = "multi_use"
)

// PaymentType distinguishes mandate-establishing payments from plain ones.
type PaymentType string

const (
	PaymentTypeSetupMandate PaymentType = "setup_mandate"
	PaymentTypeNonMandate   PaymentType = "non_mandate"
)

// SetupFutureUsage is the merchant's intent to reuse the instrument.
type SetupFutureUsage string

const (
	SetupFutureUsageOnSession  SetupFutureUsage = "on_session"
	SetupFutureUsageOffSession SetupFutureUsage = "off_session"
)

// CardNetwork is the card scheme.
type CardNetwork string

const (
	CardNetworkVisa       CardNetwork = "Visa"
	CardNetworkMastercard CardNetwork = "Mastercard"
	CardNetworkAmex       CardNetwork = "AmericanExpress"
	CardNetworkDiscover   CardNetwork = "Discover"
	CardNetworkJCB        CardNetwork = "JCB"
	CardNetworkDinersClub CardNetwork = "DinersClub"
	CardNetworkUnionPay   CardNetwork = "UnionPay"
	CardNetworkRuPay      CardNetwork = "RuPay"
	CardNetworkMaestro    CardNetwork = "Maestro"
)

// GetToken describes how a session token is obtained for a connector during
// the session flow.
type GetToken string

const (
	GetTokenConnector GetToken = "connector"
	GetTokenMetadata  GetToken = "metadata"
)
