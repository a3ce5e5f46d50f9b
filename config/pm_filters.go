// Package config holds the deployment configuration consumed by the routing
// core: the global payment-method filters that scope connectors to the
// country/currency/instrument tuples they may serve.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/switchpay/routing/types"
)

// FilterEntry scopes one payment method type to allowed countries and
// currencies. Empty slices mean unconstrained on that dimension.
type FilterEntry struct {
	Currency []types.Currency `yaml:"currency,omitempty" json:"currency,omitempty"`
	Country  []types.Country  `yaml:"country,omitempty" json:"country,omitempty"`
}

// Filter enumerates the allowed (country x currency x payment-method-type)
// triples for one connector, keyed by payment method type.
type Filter map[types.PaymentMethodType]FilterEntry

// PaymentMethodFilters is the wire form of the pm_filters configuration.
// The key "default" supplies the global default filter; every other key is a
// connector name supplying a per-connector filter.
type PaymentMethodFilters map[string]Filter

// defaultFilterKey is reserved in the wire form and is not a connector name.
const defaultFilterKey = "default"

// CountryCurrencyFilter is the split form consumed during constraint graph
// construction: per-connector filters plus an optional global default.
type CountryCurrencyFilter struct {
	ConnectorConfigs map[types.ConnectorName]Filter
	DefaultConfigs   Filter
}

// Split partitions the wire form into per-connector and default filters.
// Keys other than "default" must parse as known connector names.
func (f PaymentMethodFilters) Split() (CountryCurrencyFilter, error) {
	out := CountryCurrencyFilter{
		ConnectorConfigs: make(map[types.ConnectorName]Filter, len(f)),
	}
	for key, filter := range f {
		if key == defaultFilterKey {
			out.DefaultConfigs = filter
			continue
		}
		name, err := types.ParseConnectorName(key)
		if err != nil {
			return CountryCurrencyFilter{}, fmt.Errorf("pm_filters key %q: %w", key, err)
		}
		out.ConnectorConfigs[name] = filter
	}
	return out, nil
}

// ForConnector returns the filter applying to the given connector: its own
// entry if configured, otherwise the default. The second return is false when
// neither exists.
func (f CountryCurrencyFilter) ForConnector(name types.ConnectorName) (Filter, bool) {
	if filter, ok := f.ConnectorConfigs[name]; ok {
		return filter, true
	}
	if f.DefaultConfigs != nil {
		return f.DefaultConfigs, true
	}
	return nil, false
}

// Parse decodes a YAML pm_filters document.
func Parse(data []byte) (PaymentMethodFilters, error) {
	var filters PaymentMethodFilters
	if err := yaml.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("failed to parse pm_filters: %w", err)
	}
	return filters, nil
}

// Load reads and parses a YAML pm_filters file.
func Load(path string) (PaymentMethodFilters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pm_filters file: %w", err)
	}
	return Parse(data)
}
