// Package cgraph implements the constraint graph: an immutable predicate DAG
// encoding which connectors are eligible for which payment attribute tuples.
// A graph is built once from a merchant's connector accounts and the global
// payment-method filters, shared across concurrent selections, and queried
// with a per-call memoization table.
package cgraph

import (
	"github.com/switchpay/routing/types"
)

// Key names one dimension of the analysis space.
type Key string

const (
	KeyPaymentMethod     Key = "payment_method"
	KeyPaymentMethodType Key = "payment_method_type"
	KeyCardNetwork       Key = "card_network"
	KeyCurrency          Key = "currency"
	KeyBillingCountry    Key = "billing_country"
	KeyBusinessCountry   Key = "business_country"
	KeyCaptureMethod     Key = "capture_method"
	KeyAuthenticationType Key = "authentication_type"
)

// Value is one atomic assertion over a dimension, e.g. currency == USD.
type Value struct {
	Key   Key
	Value string
}

// Context is the set of attribute atoms a query holds, derived from a
// BackendInput. A dimension absent from the context is unconstrained: any
// assertion over it is treated as satisfiable.
type Context struct {
	values map[Key]map[string]struct{}
	amount *int64
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: make(map[Key]map[string]struct{})}
}

func (c *Context) add(key Key, value string) {
	if c.values[key] == nil {
		c.values[key] = make(map[string]struct{})
	}
	c.values[key][value] = struct{}{}
}

// Holds reports whether the context can satisfy the assertion. A key with no
// atoms in the context satisfies every assertion over it.
func (c *Context) Holds(v Value) bool {
	atoms, ok := c.values[v.Key]
	if !ok || len(atoms) == 0 {
		return true
	}
	_, present := atoms[v.Value]
	return present
}

// Amount returns the payment amount carried by the context, if any.
func (c *Context) Amount() (int64, bool) {
	if c.amount == nil {
		return 0, false
	}
	return *c.amount, true
}

// ContextFromBackendInput projects a BackendInput into the analysis context.
// Only present fields produce atoms; absent fields stay unconstrained.
func ContextFromBackendInput(input types.BackendInput) *Context {
	ctx := NewContext()

	amount := input.Payment.Amount
	ctx.amount = &amount
	if input.Payment.Currency != "" {
		ctx.add(KeyCurrency, string(input.Payment.Currency))
	}
	if input.Payment.BillingCountry != nil {
		ctx.add(KeyBillingCountry, string(*input.Payment.BillingCountry))
	}
	if input.Payment.BusinessCountry != nil {
		ctx.add(KeyBusinessCountry, string(*input.Payment.BusinessCountry))
	}
	if input.Payment.CaptureMethod != nil {
		ctx.add(KeyCaptureMethod, string(*input.Payment.CaptureMethod))
	}
	if input.Payment.AuthenticationType != nil {
		ctx.add(KeyAuthenticationType, string(*input.Payment.AuthenticationType))
	}
	if input.PaymentMethod.PaymentMethod != nil {
		ctx.add(KeyPaymentMethod, string(*input.PaymentMethod.PaymentMethod))
	}
	if input.PaymentMethod.PaymentMethodType != nil {
		ctx.add(KeyPaymentMethodType, string(*input.PaymentMethod.PaymentMethodType))
	}
	if input.PaymentMethod.CardNetwork != nil {
		ctx.add(KeyCardNetwork, string(*input.PaymentMethod.CardNetwork))
	}
	return ctx
}
