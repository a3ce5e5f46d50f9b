package cgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchpay/routing/types"
)

func contextWith(values ...Value) *Context {
	ctx := NewContext()
	for _, v := range values {
		ctx.add(v.Key, v.Value)
	}
	return ctx
}

func TestValueNodeEvaluation(t *testing.T) {
	builder := NewGraphBuilder()
	root := builder.MakeValueNode(Value{Key: KeyCurrency, Value: "USD"})
	builder.AddConnectorRoot(types.ConnectorStripe, root)
	graph := builder.Build()

	ok, err := graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "USD"}), NewMemoization())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "EUR"}), NewMemoization())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnconstrainedDimensionSatisfiesValueNode(t *testing.T) {
	builder := NewGraphBuilder()
	root := builder.MakeValueNode(Value{Key: KeyPaymentMethod, Value: "card"})
	builder.AddConnectorRoot(types.ConnectorStripe, root)
	graph := builder.Build()

	// The context says nothing about payment method, so the assertion is
	// satisfiable.
	ok, err := graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "USD"}), NewMemoization())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAggregatorNodes(t *testing.T) {
	builder := NewGraphBuilder()
	usd := builder.MakeValueNode(Value{KeyCurrency, "USD"})
	eur := builder.MakeValueNode(Value{KeyCurrency, "EUR"})
	card := builder.MakeValueNode(Value{KeyPaymentMethod, "card"})
	anyCurrency := builder.MakeAnyNode([]NodeID{usd, eur})
	root := builder.MakeAllNode([]NodeID{card, anyCurrency})
	builder.AddConnectorRoot(types.ConnectorAdyen, root)
	graph := builder.Build()

	ok, err := graph.CheckValueValidity(types.ConnectorAdyen,
		contextWith(Value{KeyCurrency, "EUR"}, Value{KeyPaymentMethod, "card"}), NewMemoization())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = graph.CheckValueValidity(types.ConnectorAdyen,
		contextWith(Value{KeyCurrency, "GBP"}, Value{KeyPaymentMethod, "card"}), NewMemoization())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNegationNode(t *testing.T) {
	builder := NewGraphBuilder()
	inr := builder.MakeValueNode(Value{KeyCurrency, "INR"})
	root := builder.MakeNotNode(inr)
	builder.AddConnectorRoot(types.ConnectorStripe, root)
	graph := builder.Build()

	ok, err := graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "USD"}), NewMemoization())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "INR"}), NewMemoization())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAmountRangeNode(t *testing.T) {
	min := int64(100)
	max := int64(10000)

	builder := NewGraphBuilder()
	root := builder.MakeAmountRangeNode(&min, &max)
	builder.AddConnectorRoot(types.ConnectorStripe, root)
	graph := builder.Build()

	inRange := NewContext()
	amount := int64(5000)
	inRange.amount = &amount
	ok, err := graph.CheckValueValidity(types.ConnectorStripe, inRange, NewMemoization())
	require.NoError(t, err)
	assert.True(t, ok)

	tooSmall := NewContext()
	small := int64(50)
	tooSmall.amount = &small
	ok, err = graph.CheckValueValidity(types.ConnectorStripe, tooSmall, NewMemoization())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownConnectorIsIneligible(t *testing.T) {
	graph := NewGraphBuilder().Build()
	ok, err := graph.CheckValueValidity(types.ConnectorStripe, NewContext(), NewMemoization())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnyRootSuffices(t *testing.T) {
	builder := NewGraphBuilder()
	usdOnly := builder.MakeValueNode(Value{KeyCurrency, "USD"})
	eurOnly := builder.MakeValueNode(Value{KeyCurrency, "EUR"})
	builder.AddConnectorRoot(types.ConnectorStripe, usdOnly)
	builder.AddConnectorRoot(types.ConnectorStripe, eurOnly)
	graph := builder.Build()

	// Two accounts for the same connector: either satisfying account makes
	// the connector eligible.
	ok, err := graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "EUR"}), NewMemoization())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoizationIsPerQuery(t *testing.T) {
	builder := NewGraphBuilder()
	usd := builder.MakeValueNode(Value{KeyCurrency, "USD"})
	builder.AddConnectorRoot(types.ConnectorStripe, usd)
	graph := builder.Build()

	memo := NewMemoization()
	ok, err := graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "USD"}), memo)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, memo)

	// A fresh memo against a different context reaches the opposite verdict;
	// reusing the stale one would not.
	ok, err = graph.CheckValueValidity(types.ConnectorStripe, contextWith(Value{KeyCurrency, "EUR"}), NewMemoization())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContextFromBackendInput(t *testing.T) {
	pm := types.PaymentMethodCard
	pmt := types.PaymentMethodTypeCredit
	country := types.Country("US")

	input := types.BackendInput{
		Payment: types.PaymentInput{
			Amount:         2500,
			Currency:       types.CurrencyUSD,
			BillingCountry: &country,
		},
		PaymentMethod: types.PaymentMethodInput{
			PaymentMethod:     &pm,
			PaymentMethodType: &pmt,
		},
	}

	ctx := ContextFromBackendInput(input)
	assert.True(t, ctx.Holds(Value{KeyCurrency, "USD"}))
	assert.False(t, ctx.Holds(Value{KeyCurrency, "EUR"}))
	assert.True(t, ctx.Holds(Value{KeyPaymentMethod, "card"}))
	assert.True(t, ctx.Holds(Value{KeyBillingCountry, "US"}))
	// Unset dimensions are unconstrained.
	assert.True(t, ctx.Holds(Value{KeyCardNetwork, "Visa"}))

	amount, present := ctx.Amount()
	assert.True(t, present)
	assert.Equal(t, int64(2500), amount)
}
