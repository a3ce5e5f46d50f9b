package types

import (
	"encoding/json"
	"fmt"
)

// PaymentInput carries the payment-level attributes the rule backends match
// against. All fields are pure data; absent means unknown, not defaulted.
type PaymentInput struct {
	Amount             int64               `json:"amount"`
	Currency           Currency            `json:"currency"`
	CardBin            *string             `json:"card_bin,omitempty"`
	AuthenticationType *AuthenticationType `json:"authentication_type,omitempty"`
	CaptureMethod      *CaptureMethod      `json:"capture_method,omitempty"`
	BusinessCountry    *Country            `json:"business_country,omitempty"`
	BillingCountry     *Country            `json:"billing_country,omitempty"`
	BusinessLabel      *string             `json:"business_label,omitempty"`
	SetupFutureUsage   *SetupFutureUsage   `json:"setup_future_usage,omitempty"`
}

// PaymentMethodInput carries the instrument attributes.
type PaymentMethodInput struct {
	PaymentMethod     *PaymentMethod     `json:"payment_method,omitempty"`
	PaymentMethodType *PaymentMethodType `json:"payment_method_type,omitempty"`
	CardNetwork       *CardNetwork       `json:"card_network,omitempty"`
}

// MandateData carries the mandate attributes.
type MandateData struct {
	MandateAcceptanceType *MandateAcceptanceType `json:"mandate_acceptance_type,omitempty"`
	MandateType           *MandateType           `json:"mandate_type,omitempty"`
	PaymentType           *PaymentType           `json:"payment_type,omitempty"`
}

// BackendInput is the normalized projection of a payment or payout consumed
// by the rule interpreter and the constraint graph. Built once per selection
// and owned by the orchestrator for its duration.
type BackendInput struct {
	Payment       PaymentInput       `json:"payment"`
	PaymentMethod PaymentMethodInput `json:"payment_method"`
	Mandate       MandateData        `json:"mandate"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

// ConnectorSelection is the output of an advanced rule program. After
// normalization it must be a priority list or a volume split; a single
// selection at this layer indicates a misauthored program and is rejected by
// the interpreter's caller.
type ConnectorSelection struct {
	Kind        AlgorithmKind
	Single      *RoutableConnectorChoice
	Priority    []RoutableConnectorChoice
	VolumeSplit []ConnectorVolumeSplit
}

// UnmarshalJSON decodes the untagged single-key wire form shared with
// RoutingAlgorithm, minus the advanced variant.
func (s *ConnectorSelection) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("connector selection must hold exactly one variant")
	}
	switch {
	case raw["single"] != nil:
		var choice RoutableConnectorChoice
		if err := json.Unmarshal(raw["single"], &choice); err != nil {
			return err
		}
		*s = ConnectorSelection{Kind: AlgorithmSingle, Single: &choice}
	case raw["priority"] != nil:
		var plist []RoutableConnectorChoice
		if err := json.Unmarshal(raw["priority"], &plist); err != nil {
			return err
		}
		*s = ConnectorSelection{Kind: AlgorithmPriority, Priority: plist}
	case raw["volume_split"] != nil:
		var splits []ConnectorVolumeSplit
		if err := json.Unmarshal(raw["volume_split"], &splits); err != nil {
			return err
		}
		*s = ConnectorSelection{Kind: AlgorithmVolumeSplit, VolumeSplit: splits}
	default:
		return fmt.Errorf("connector selection has no recognized variant")
	}
	return nil
}

// MarshalJSON emits the untagged single-key wire form.
func (s ConnectorSelection) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case AlgorithmSingle:
		return json.Marshal(map[string]*RoutableConnectorChoice{"single": s.Single})
	case AlgorithmPriority:
		return json.Marshal(map[string][]RoutableConnectorChoice{"priority": s.Priority})
	case AlgorithmVolumeSplit:
		return json.Marshal(map[string][]ConnectorVolumeSplit{"volume_split": s.VolumeSplit})
	default:
		return nil, fmt.Errorf("cannot marshal connector selection of kind %q", s.Kind)
	}
}
