package types

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// AlgorithmKind discriminates the routing algorithm variants.
type AlgorithmKind string

const (
	AlgorithmSingle      AlgorithmKind = "single"
	AlgorithmPriority    AlgorithmKind = "priority"
	AlgorithmVolumeSplit AlgorithmKind = "volume_split"
	AlgorithmAdvanced    AlgorithmKind = "advanced"
)

// RoutingAlgorithm is the merchant-configured policy turning a payment's
// attributes into a ranked connector list.
//
// The wire form is an object with exactly one of the keys "single",
// "priority", "volume_split" or "advanced"; there is no explicit type tag.
// Advanced programs are kept raw here and compiled by the dsl package.
type RoutingAlgorithm struct {
	Kind        AlgorithmKind
	Single      *RoutableConnectorChoice
	Priority    []RoutableConnectorChoice
	VolumeSplit []ConnectorVolumeSplit
	Program     json.RawMessage
}

// algorithmSchema rejects structurally invalid documents before decoding.
// Shape only; list/sum invariants are enforced by UnmarshalJSON.
const algorithmSchema = `{
	"type": "object",
	"minProperties": 1,
	"maxProperties": 1,
	"properties": {
		"single":       {"type": "object"},
		"priority":     {"type": "array"},
		"volume_split": {"type": "array"},
		"advanced":     {"type": "object"}
	},
	"additionalProperties": false
}`

var compiledAlgorithmSchema = gojsonschema.NewStringLoader(algorithmSchema)

// ValidateAlgorithmDocument checks the raw JSON against the algorithm shape
// schema. It reports the first violation found.
func ValidateAlgorithmDocument(data []byte) error {
	result, err := gojsonschema.Validate(compiledAlgorithmSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("algorithm document is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("algorithm document shape invalid: %s", result.Errors()[0])
	}
	return nil
}

// UnmarshalJSON decodes the untagged wire form and enforces the variant
// invariants: non-empty lists, splits within 0-100 summing to exactly 100.
func (a *RoutingAlgorithm) UnmarshalJSON(data []byte) error {
	if err := ValidateAlgorithmDocument(data); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw["single"] != nil:
		var choice RoutableConnectorChoice
		if err := json.Unmarshal(raw["single"], &choice); err != nil {
			return err
		}
		*a = RoutingAlgorithm{Kind: AlgorithmSingle, Single: &choice}

	case raw["priority"] != nil:
		var plist []RoutableConnectorChoice
		if err := json.Unmarshal(raw["priority"], &plist); err != nil {
			return err
		}
		if len(plist) == 0 {
			return fmt.Errorf("priority algorithm must list at least one connector")
		}
		*a = RoutingAlgorithm{Kind: AlgorithmPriority, Priority: plist}

	case raw["volume_split"] != nil:
		var splits []ConnectorVolumeSplit
		if err := json.Unmarshal(raw["volume_split"], &splits); err != nil {
			return err
		}
		if err := validateSplits(splits); err != nil {
			return err
		}
		*a = RoutingAlgorithm{Kind: AlgorithmVolumeSplit, VolumeSplit: splits}

	case raw["advanced"] != nil:
		*a = RoutingAlgorithm{Kind: AlgorithmAdvanced, Program: raw["advanced"]}

	default:
		return fmt.Errorf("algorithm document has no recognized variant")
	}
	return nil
}

// MarshalJSON emits the untagged single-key wire form.
func (a RoutingAlgorithm) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AlgorithmSingle:
		return json.Marshal(map[string]*RoutableConnectorChoice{"single": a.Single})
	case AlgorithmPriority:
		return json.Marshal(map[string][]RoutableConnectorChoice{"priority": a.Priority})
	case AlgorithmVolumeSplit:
		return json.Marshal(map[string][]ConnectorVolumeSplit{"volume_split": a.VolumeSplit})
	case AlgorithmAdvanced:
		return json.Marshal(map[string]json.RawMessage{"advanced": a.Program})
	default:
		return nil, fmt.Errorf("cannot marshal routing algorithm of kind %q", a.Kind)
	}
}

func validateSplits(splits []ConnectorVolumeSplit) error {
	if len(splits) == 0 {
		return fmt.Errorf("volume split algorithm must list at least one connector")
	}
	var total int
	for _, sp := range splits {
		if sp.Split > 100 {
			return fmt.Errorf("volume split share %d exceeds 100", sp.Split)
		}
		total += int(sp.Split)
	}
	if total != 100 {
		return fmt.Errorf("volume split shares sum to %d, expected 100", total)
	}
	return nil
}

// StraightThroughAlgorithm is an inline routing policy supplied with the
// request itself. Advanced programs are not accepted here; straight-through
// routing performs no cache or storage lookups to compile one.
type StraightThroughAlgorithm struct {
	Kind        AlgorithmKind
	Single      *RoutableConnectorChoice
	Priority    []RoutableConnectorChoice
	VolumeSplit []ConnectorVolumeSplit
}

// UnmarshalJSON decodes the same untagged wire form as RoutingAlgorithm,
// rejecting the advanced variant.
func (a *StraightThroughAlgorithm) UnmarshalJSON(data []byte) error {
	var full RoutingAlgorithm
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	if full.Kind == AlgorithmAdvanced {
		return fmt.Errorf("advanced algorithms cannot be used for straight-through routing")
	}
	*a = StraightThroughAlgorithm{
		Kind:        full.Kind,
		Single:      full.Single,
		Priority:    full.Priority,
		VolumeSplit: full.VolumeSplit,
	}
	return nil
}

// MarshalJSON emits the untagged single-key wire form.
func (a StraightThroughAlgorithm) MarshalJSON() ([]byte, error) {
	return json.Marshal(RoutingAlgorithm{
		Kind:        a.Kind,
		Single:      a.Single,
		Priority:    a.Priority,
		VolumeSplit: a.VolumeSplit,
	})
}

// RoutingAlgorithmRef is the V1 shape of a profile's routing algorithm
// reference: which stored algorithm to use, if any, and when it was set.
type RoutingAlgorithmRef struct {
	AlgorithmID *string `json:"algorithm_id,omitempty"`
	Timestamp   int64   `json:"timestamp,omitempty"`
}

// MerchantAccountRoutingAlgorithm is the versioned wrapper around the
// algorithm reference stored on a business profile. The serialized form is
// untagged; versions are told apart by field shape. Only V1 exists today.
type MerchantAccountRoutingAlgorithm struct {
	V1 RoutingAlgorithmRef
}

var v1RefKeys = map[string]struct{}{
	"algorithm_id": {},
	"timestamp":    {},
}

// UnmarshalJSON accepts the V1 shape and rejects anything else, leaving room
// for a V2 with a distinct field set.
func (m *MerchantAccountRoutingAlgorithm) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("routing algorithm reference is not an object: %w", err)
	}
	for key := range raw {
		if _, ok := v1RefKeys[key]; !ok {
			return fmt.Errorf("unrecognized routing algorithm reference shape: unexpected field %q", key)
		}
	}
	var ref RoutingAlgorithmRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	m.V1 = ref
	return nil
}

// MarshalJSON emits the untagged V1 shape.
func (m MerchantAccountRoutingAlgorithm) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.V1)
}
