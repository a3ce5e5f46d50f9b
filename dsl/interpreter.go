package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/switchpay/routing/types"
)

// inputKey names one addressable dimension of a BackendInput.
type inputKey string

const (
	keyAmount             inputKey = "amount"
	keyCurrency           inputKey = "currency"
	keyCardBin            inputKey = "card_bin"
	keyAuthenticationType inputKey = "authentication_type"
	keyCaptureMethod      inputKey = "capture_method"
	keyBusinessCountry    inputKey = "business_country"
	keyBillingCountry     inputKey = "billing_country"
	keyBusinessLabel      inputKey = "business_label"
	keySetupFutureUsage   inputKey = "setup_future_usage"
	keyPaymentMethod      inputKey = "payment_method"
	keyPaymentMethodType  inputKey = "payment_method_type"
	keyCardNetwork        inputKey = "card_network"
	keyMandateAcceptance  inputKey = "mandate_acceptance_type"
	keyMandateType        inputKey = "mandate_type"
	keyPaymentType        inputKey = "payment_type"
	keyMetadata           inputKey = "metadata"
)

// keyKind classifies a key's value domain for compile-time checking.
type keyKind int

const (
	kindNumber keyKind = iota
	kindEnum
	kindString
	kindMetadata
)

var keyKinds = map[inputKey]keyKind{
	keyAmount:             kindNumber,
	keyCurrency:           kindEnum,
	keyCardBin:            kindString,
	keyAuthenticationType: kindEnum,
	keyCaptureMethod:      kindEnum,
	keyBusinessCountry:    kindEnum,
	keyBillingCountry:     kindEnum,
	keyBusinessLabel:      kindString,
	keySetupFutureUsage:   kindEnum,
	keyPaymentMethod:      kindEnum,
	keyPaymentMethodType:  kindEnum,
	keyCardNetwork:        kindEnum,
	keyMandateAcceptance:  kindEnum,
	keyMandateType:        kindEnum,
	keyPaymentType:        kindEnum,
	keyMetadata:           kindMetadata,
}

// InterpreterBackend is a compiled rule program ready for execution. Build it
// once with NewInterpreterBackend and share it; Execute is read-only.
type InterpreterBackend struct {
	program *Program
}

// NewInterpreterBackend parses and validates a raw advanced-algorithm
// document into an executable backend. Validation covers key names, operator
// and value-kind compatibility, and volume-split shares; it does not reject
// single-connector rule outputs, which are caught at selection time.
func NewInterpreterBackend(raw json.RawMessage) (*InterpreterBackend, error) {
	program, err := ParseProgram(raw)
	if err != nil {
		return nil, err
	}
	return NewInterpreterBackendFromProgram(program)
}

// NewInterpreterBackendFromProgram validates an already-decoded program.
func NewInterpreterBackendFromProgram(program *Program) (*InterpreterBackend, error) {
	for _, rule := range program.Rules {
		if len(rule.Statements) == 0 {
			return nil, fmt.Errorf("rule %q has no statements", rule.Name)
		}
		for _, statement := range rule.Statements {
			if len(statement.Condition) == 0 {
				return nil, fmt.Errorf("rule %q has an empty condition", rule.Name)
			}
			for _, comparison := range statement.Condition {
				if err := validateComparison(comparison); err != nil {
					return nil, errors.Wrapf(err, "rule %q", rule.Name)
				}
			}
		}
		if err := validateSelection(rule.ConnectorSelection); err != nil {
			return nil, errors.Wrapf(err, "rule %q", rule.Name)
		}
	}
	if err := validateSelection(program.DefaultSelection); err != nil {
		return nil, errors.Wrap(err, "default selection")
	}
	return &InterpreterBackend{program: program}, nil
}

func validateComparison(c Comparison) error {
	kind, ok := keyKinds[inputKey(c.LHS)]
	if !ok {
		return fmt.Errorf("unknown input key %q", c.LHS)
	}

	switch c.Comp {
	case OpEqual, OpNotEqual:
	case OpLessThan, OpGreaterThan, OpLessThanEqual, OpGreaterThanEqual:
		if kind != kindNumber {
			return fmt.Errorf("key %q does not support ordering comparison %q", c.LHS, c.Comp)
		}
	default:
		return fmt.Errorf("unknown comparison operator %q", c.Comp)
	}

	switch kind {
	case kindNumber:
		if c.Value.Kind != ValueNumber {
			return fmt.Errorf("key %q requires a number value, got %q", c.LHS, c.Value.Kind)
		}
	case kindEnum:
		if c.Value.Kind != ValueEnumVariant {
			return fmt.Errorf("key %q requires an enum value, got %q", c.LHS, c.Value.Kind)
		}
	case kindString:
		if c.Value.Kind != ValueStr {
			return fmt.Errorf("key %q requires a string value, got %q", c.LHS, c.Value.Kind)
		}
	case kindMetadata:
		if c.Value.Kind != ValueMetadataVariant {
			return fmt.Errorf("key %q requires a metadata key/value, got %q", c.LHS, c.Value.Kind)
		}
	}
	return nil
}

func validateSelection(sel types.ConnectorSelection) error {
	switch sel.Kind {
	case types.AlgorithmPriority:
		if len(sel.Priority) == 0 {
			return fmt.Errorf("priority selection lists no connectors")
		}
	case types.AlgorithmVolumeSplit:
		if len(sel.VolumeSplit) == 0 {
			return fmt.Errorf("volume split selection lists no connectors")
		}
		var total int
		for _, sp := range sel.VolumeSplit {
			total += int(sp.Split)
		}
		if total != 100 {
			return fmt.Errorf("volume split shares sum to %d, expected 100", total)
		}
	case types.AlgorithmSingle:
		if sel.Single == nil {
			return fmt.Errorf("single selection names no connector")
		}
	default:
		return fmt.Errorf("selection has unsupported kind %q", sel.Kind)
	}
	return nil
}

// Execute evaluates the program against the input. The first rule with a
// holding statement wins; otherwise the default selection is returned.
func (b *InterpreterBackend) Execute(input types.BackendInput) (types.ConnectorSelection, error) {
	for _, rule := range b.program.Rules {
		matched, err := b.ruleMatches(rule, input)
		if err != nil {
			return types.ConnectorSelection{}, errors.Wrapf(err, "evaluating rule %q", rule.Name)
		}
		if matched {
			return rule.ConnectorSelection, nil
		}
	}
	return b.program.DefaultSelection, nil
}

func (b *InterpreterBackend) ruleMatches(rule Rule, input types.BackendInput) (bool, error) {
	for _, statement := range rule.Statements {
		holds := true
		for _, comparison := range statement.Condition {
			ok, err := evalComparison(comparison, input)
			if err != nil {
				return false, err
			}
			if !ok {
				holds = false
				break
			}
		}
		if holds {
			return true, nil
		}
	}
	return false, nil
}

// evalComparison evaluates one predicate. A comparison over a field absent
// from the input is an execution fault: a program referencing a field the
// input does not carry is fatal for the call, not a silent non-match.
func evalComparison(c Comparison, input types.BackendInput) (bool, error) {
	key := inputKey(c.LHS)
	kind, ok := keyKinds[key]
	if !ok {
		return false, fmt.Errorf("unknown input key %q", c.LHS)
	}

	switch kind {
	case kindNumber:
		return compareNumber(c.Comp, input.Payment.Amount, c.Value.Number), nil

	case kindMetadata:
		actual, present := input.Metadata[c.Value.MetaKey]
		if !present {
			return false, missingFieldError("metadata." + c.Value.MetaKey)
		}
		return compareEquality(c.Comp, actual == c.Value.MetaValue), nil

	case kindString:
		actual, present := stringField(key, input)
		if !present {
			return false, missingFieldError(c.LHS)
		}
		return compareEquality(c.Comp, actual == c.Value.Str), nil

	case kindEnum:
		actual, present := enumField(key, input)
		if !present {
			return false, missingFieldError(c.LHS)
		}
		return compareEquality(c.Comp, actual == c.Value.Enum), nil

	default:
		return false, fmt.Errorf("unknown input key %q", c.LHS)
	}
}

// missingFieldError reports a required input field the program referenced but
// the input did not carry.
func missingFieldError(fieldName string) error {
	return fmt.Errorf("missing required input field %q", fieldName)
}

func compareNumber(op ComparisonOp, actual, expected int64) bool {
	switch op {
	case OpEqual:
		return actual == expected
	case OpNotEqual:
		return actual != expected
	case OpLessThan:
		return actual < expected
	case OpGreaterThan:
		return actual > expected
	case OpLessThanEqual:
		return actual <= expected
	case OpGreaterThanEqual:
		return actual >= expected
	default:
		return false
	}
}

func compareEquality(op ComparisonOp, equal bool) bool {
	if op == OpNotEqual {
		return !equal
	}
	return equal
}

func stringField(key inputKey, input types.BackendInput) (string, bool) {
	switch key {
	case keyCardBin:
		if input.Payment.CardBin == nil {
			return "", false
		}
		return *input.Payment.CardBin, true
	case keyBusinessLabel:
		if input.Payment.BusinessLabel == nil {
			return "", false
		}
		return *input.Payment.BusinessLabel, true
	default:
		return "", false
	}
}

func enumField(key inputKey, input types.BackendInput) (string, bool) {
	switch key {
	case keyCurrency:
		if input.Payment.Currency == "" {
			return "", false
		}
		return string(input.Payment.Currency), true
	case keyAuthenticationType:
		if input.Payment.AuthenticationType == nil {
			return "", false
		}
		return string(*input.Payment.AuthenticationType), true
	case keyCaptureMethod:
		if input.Payment.CaptureMethod == nil {
			return "", false
		}
		return string(*input.Payment.CaptureMethod), true
	case keyBusinessCountry:
		if input.Payment.BusinessCountry == nil {
			return "", false
		}
		return string(*input.Payment.BusinessCountry), true
	case keyBillingCountry:
		if input.Payment.BillingCountry == nil {
			return "", false
		}
		return string(*input.Payment.BillingCountry), true
	case keySetupFutureUsage:
		if input.Payment.SetupFutureUsage == nil {
			return "", false
		}
		return string(*input.Payment.SetupFutureUsage), true
	case keyPaymentMethod:
		if input.PaymentMethod.PaymentMethod == nil {
			return "", false
		}
		return string(*input.PaymentMethod.PaymentMethod), true
	case keyPaymentMethodType:
		if input.PaymentMethod.PaymentMethodType == nil {
			return "", false
		}
		return string(*input.PaymentMethod.PaymentMethodType), true
	case keyCardNetwork:
		if input.PaymentMethod.CardNetwork == nil {
			return "", false
		}
		return string(*input.PaymentMethod.CardNetwork), true
	case keyMandateAcceptance:
		if input.Mandate.MandateAcceptanceType == nil {
			return "", false
		}
		return string(*input.Mandate.MandateAcceptanceType), true
	case keyMandateType:
		if input.Mandate.MandateType == nil {
			return "", false
		}
		return string(*input.Mandate.MandateType), true
	case keyPaymentType:
		if input.Mandate.PaymentType == nil {
			return "", false
		}
		return string(*input.Mandate.PaymentType), true
	default:
		return "", false
	}
}
