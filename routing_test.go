package routing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchpay/routing/storage"
	"github.com/switchpay/routing/types"
)

// fakeStore is an in-memory RoutingStore for tests.
type fakeStore struct {
	mu sync.Mutex

	algorithms map[string]*storage.RoutingAlgorithmRow
	accounts   []types.MerchantConnectorAccount
	profiles   map[string]*types.BusinessProfile
	defaults   map[string][]types.RoutableConnectorChoice

	defaultErr error

	algorithmFetches int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		algorithms: make(map[string]*storage.RoutingAlgorithmRow),
		profiles:   make(map[string]*types.BusinessProfile),
		defaults:   make(map[string][]types.RoutableConnectorChoice),
	}
}

func (s *fakeStore) setAlgorithm(profileID, algorithmID string, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.algorithms[profileID+"|"+algorithmID] = &storage.RoutingAlgorithmRow{
		AlgorithmID:   algorithmID,
		ProfileID:     profileID,
		AlgorithmData: json.RawMessage(data),
	}
}

func (s *fakeStore) setDefault(profileID string, tt types.TransactionType, connectors ...types.ConnectorName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[profileID+"|"+string(tt)] = choicesOf(connectors...)
}

func (s *fakeStore) FindRoutingAlgorithmByProfileIDAlgorithmID(_ context.Context, profileID, algorithmID string) (*storage.RoutingAlgorithmRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.algorithmFetches++
	row, ok := s.algorithms[profileID+"|"+algorithmID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return row, nil
}

func (s *fakeStore) FindMerchantConnectorAccountsByMerchantIDAndDisabledList(_ context.Context, _ string, includeDisabled bool) ([]types.MerchantConnectorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.MerchantConnectorAccount
	for _, account := range s.accounts {
		if account.Disabled && !includeDisabled {
			continue
		}
		out = append(out, account)
	}
	return out, nil
}

func (s *fakeStore) FindBusinessProfileByProfileID(_ context.Context, profileID string) (*types.BusinessProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return profile, nil
}

func (s *fakeStore) GetMerchantDefaultConfig(_ context.Context, profileID string, tt types.TransactionType) ([]types.RoutableConnectorChoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultErr != nil {
		return nil, s.defaultErr
	}
	return s.defaults[profileID+"|"+string(tt)], nil
}

func choicesOf(names ...types.ConnectorName) []types.RoutableConnectorChoice {
	var out []types.RoutableConnectorChoice
	for _, name := range names {
		out = append(out, types.RoutableConnectorChoice{Connector: name})
	}
	return out
}

// cardAccount declares a card/credit capable account, optionally restricted
// to the given currencies.
func cardAccount(id string, connector types.ConnectorName, currencies ...types.Currency) types.MerchantConnectorAccount {
	pmt := types.RequestPaymentMethodType{PaymentMethodType: types.PaymentMethodTypeCredit}
	if len(currencies) > 0 {
		pmt.AcceptedCurrencies = &types.AcceptedCurrencies{Kind: types.AcceptEnableOnly, List: currencies}
	}
	return types.MerchantConnectorAccount{
		MerchantConnectorID: id,
		MerchantID:          "merchant_1",
		ConnectorName:       connector,
		ConnectorType:       types.ConnectorTypePaymentProcessor,
		PaymentMethodsEnabled: []types.PaymentMethodsEnabled{{
			PaymentMethod:      types.PaymentMethodCard,
			PaymentMethodTypes: []types.RequestPaymentMethodType{pmt},
		}},
	}
}

func walletAccount(id string, connector types.ConnectorName, pmt types.PaymentMethodType) types.MerchantConnectorAccount {
	return types.MerchantConnectorAccount{
		MerchantConnectorID: id,
		MerchantID:          "merchant_1",
		ConnectorName:       connector,
		ConnectorType:       types.ConnectorTypePaymentProcessor,
		PaymentMethodsEnabled: []types.PaymentMethodsEnabled{{
			PaymentMethod:      types.PaymentMethodWallet,
			PaymentMethodTypes: []types.RequestPaymentMethodType{{PaymentMethodType: pmt}},
		}},
	}
}

func newTestRouter(t *testing.T, store storage.RoutingStore) *Router {
	t.Helper()
	router, err := New(Config{Store: store, TenantKeyPrefix: "tenant_test"})
	require.NoError(t, err)
	return router
}

func paymentTx(profileID string) TransactionData {
	return TransactionData{Payment: &PaymentData{
		PaymentIntent: PaymentIntent{
			PaymentID: "pay_1",
			Amount:    1000,
			ProfileID: &profileID,
		},
		PaymentAttempt: PaymentAttempt{AttemptID: "pay_1_1", PaymentID: "pay_1", Amount: 1000},
		Currency:       types.CurrencyUSD,
	}}
}

func algoRef(id string) types.RoutingAlgorithmRef {
	return types.RoutingAlgorithmRef{AlgorithmID: &id}
}

func connectorsOf(choices []types.RoutableConnectorChoice) []types.ConnectorName {
	var out []types.ConnectorName
	for _, choice := range choices {
		out = append(out, choice.Connector)
	}
	return out
}

func TestStaticRoutingSingle(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1", `{"single": {"connector": "stripe"}}`)
	router := newTestRouter(t, store)

	selected, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe}, connectorsOf(selected))
}

func TestStaticRoutingPriorityPreservation(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"priority": [{"connector": "adyen"}, {"connector": "stripe"}, {"connector": "checkout"}]}`)
	router := newTestRouter(t, store)

	selected, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t,
		[]types.ConnectorName{types.ConnectorAdyen, types.ConnectorStripe, types.ConnectorCheckout},
		connectorsOf(selected))
}

func TestStaticRoutingVolumeSplit(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"volume_split": [
			{"connector": {"connector": "stripe"}, "split": 60},
			{"connector": {"connector": "adyen"}, "split": 40}
		]}`)
	router := newTestRouter(t, store)

	selected, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.ElementsMatch(t,
		[]types.ConnectorName{types.ConnectorStripe, types.ConnectorAdyen},
		connectorsOf(selected))
}

func TestStaticRoutingMissingAlgorithmIDReturnsDefaultConfig(t *testing.T) {
	store := newFakeStore()
	store.setDefault("profile_1", types.TransactionPayment, types.ConnectorRapyd, types.ConnectorNuvei)
	router := newTestRouter(t, store)

	selected, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", types.RoutingAlgorithmRef{}, paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorRapyd, types.ConnectorNuvei}, connectorsOf(selected))
	assert.Zero(t, store.algorithmFetches)
}

func TestStaticRoutingAdvancedPriority(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"advanced": {
			"default_selection": {"priority": [{"connector": "stripe"}, {"connector": "adyen"}]},
			"rules": []
		}}`)
	router := newTestRouter(t, store)

	selected, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe, types.ConnectorAdyen}, connectorsOf(selected))
}

func TestStaticRoutingAdvancedRuleMatch(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"advanced": {
			"default_selection": {"priority": [{"connector": "stripe"}]},
			"rules": [{
				"name": "eur via adyen",
				"connector_selection": {"priority": [{"connector": "adyen"}]},
				"statements": [{"condition": [
					{"lhs": "currency", "comparison": "equal", "value": {"type": "enum_variant", "value": "EUR"}}
				]}]
			}]
		}}`)
	router := newTestRouter(t, store)

	tx := paymentTx("profile_1")
	tx.Payment.Currency = types.CurrencyEUR
	selected, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), tx)
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorAdyen}, connectorsOf(selected))

	// USD misses the rule and falls through to the default.
	usd := paymentTx("profile_2")
	store.setAlgorithm("profile_2", "algo_1", `{"advanced": {
		"default_selection": {"priority": [{"connector": "stripe"}]},
		"rules": [{
			"name": "eur via adyen",
			"connector_selection": {"priority": [{"connector": "adyen"}]},
			"statements": [{"condition": [
				{"lhs": "currency", "comparison": "equal", "value": {"type": "enum_variant", "value": "EUR"}}
			]}]
		}]
	}}`)
	selected, err = router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), usd)
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe}, connectorsOf(selected))
}

func TestStaticRoutingAdvancedMissingFieldIsExecutionError(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"advanced": {
			"default_selection": {"priority": [{"connector": "stripe"}]},
			"rules": [{
				"name": "visa only",
				"connector_selection": {"priority": [{"connector": "adyen"}]},
				"statements": [{"condition": [
					{"lhs": "card_network", "comparison": "equal", "value": {"type": "enum_variant", "value": "Visa"}}
				]}]
			}]
		}}`)
	router := newTestRouter(t, store)

	// No card data on the payment, so the program's card_network reference
	// is an interpreter fault, fatal for this call.
	_, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeDslExecutionError, CodeOf(err))
}

func TestStaticRoutingAdvancedSingleRejected(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"advanced": {
			"default_selection": {"single": {"connector": "stripe"}},
			"rules": []
		}}`)
	router := newTestRouter(t, store)

	_, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeDslIncorrectSelectionAlgorithm, CodeOf(err))
}

func TestStaticRoutingAlgorithmMissingInDb(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store)

	_, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("missing"), paymentTx("profile_1"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeDslMissingInDb, CodeOf(err))
}

func TestStaticRoutingParseError(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1", `{"bogus_variant": 12}`)
	router := newTestRouter(t, store)

	_, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeDslParsingError, CodeOf(err))
}

func TestStaticRoutingProfileIDMissing(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store)

	tx := TransactionData{Payment: &PaymentData{Currency: types.CurrencyUSD}}
	_, err := router.PerformStaticRoutingV1(context.Background(), "merchant_1", algoRef("algo_1"), tx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeProfileIDMissing, CodeOf(err))
}

func TestStraightThroughRoutingSingle(t *testing.T) {
	var algorithm types.StraightThroughAlgorithm
	require.NoError(t, json.Unmarshal([]byte(`{"single": {"connector": "stripe"}}`), &algorithm))

	selected, useCreds, err := PerformStraightThroughRouting(&algorithm, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe}, connectorsOf(selected))
	assert.True(t, useCreds)

	creds := "creds_1"
	_, useCreds, err = PerformStraightThroughRouting(&algorithm, &creds)
	require.NoError(t, err)
	assert.False(t, useCreds)
}

func TestStraightThroughRoutingPriority(t *testing.T) {
	var algorithm types.StraightThroughAlgorithm
	require.NoError(t, json.Unmarshal(
		[]byte(`{"priority": [{"connector": "adyen"}, {"connector": "stripe"}]}`), &algorithm))

	creds := "creds_1"
	selected, useCreds, err := PerformStraightThroughRouting(&algorithm, &creds)
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorAdyen, types.ConnectorStripe}, connectorsOf(selected))
	assert.True(t, useCreds)
}

func TestStraightThroughRoutingRejectsAdvanced(t *testing.T) {
	var algorithm types.StraightThroughAlgorithm
	err := json.Unmarshal([]byte(`{"advanced": {"default_selection": {"priority": []}, "rules": []}}`), &algorithm)
	require.Error(t, err)
}

func TestEligibilityAnalysisFiltersAndPreservesOrder(t *testing.T) {
	store := newFakeStore()
	store.accounts = []types.MerchantConnectorAccount{
		cardAccount("mca_1", types.ConnectorStripe),
		cardAccount("mca_2", types.ConnectorAdyen, types.CurrencyEUR),
		cardAccount("mca_3", types.ConnectorCheckout),
	}
	router := newTestRouter(t, store)

	chosen := choicesOf(types.ConnectorStripe, types.ConnectorAdyen, types.ConnectorCheckout)
	selected, err := router.PerformEligibilityAnalysis(context.Background(), "merchant_1", chosen, paymentTx("profile_1"), nil, "profile_1")
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe, types.ConnectorCheckout}, connectorsOf(selected))
}

func TestEligibilityAnalysisAllowList(t *testing.T) {
	store := newFakeStore()
	store.accounts = []types.MerchantConnectorAccount{
		cardAccount("mca_1", types.ConnectorStripe),
		cardAccount("mca_3", types.ConnectorCheckout),
	}
	router := newTestRouter(t, store)

	chosen := choicesOf(types.ConnectorStripe, types.ConnectorCheckout)
	selected, err := router.PerformEligibilityAnalysis(
		context.Background(), "merchant_1", chosen, paymentTx("profile_1"),
		[]types.ConnectorName{types.ConnectorCheckout}, "profile_1")
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorCheckout}, connectorsOf(selected))
}

func TestEligibilityWithFallbackAppendsDeduped(t *testing.T) {
	store := newFakeStore()
	store.accounts = []types.MerchantConnectorAccount{
		cardAccount("mca_1", types.ConnectorStripe),
		cardAccount("mca_3", types.ConnectorCheckout),
	}
	store.setDefault("profile_1", types.TransactionPayment, types.ConnectorStripe, types.ConnectorCheckout)
	router := newTestRouter(t, store)

	chosen := choicesOf(types.ConnectorStripe)
	selected, err := router.PerformEligibilityAnalysisWithFallback(
		context.Background(), "merchant_1", chosen, paymentTx("profile_1"), nil, "profile_1")
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe, types.ConnectorCheckout}, connectorsOf(selected))

	// Idempotent for identical inputs.
	again, err := router.PerformEligibilityAnalysisWithFallback(
		context.Background(), "merchant_1", chosen, paymentTx("profile_1"), nil, "profile_1")
	require.NoError(t, err)
	assert.Equal(t, selected, again)
}

func TestEligibilityWithFallbackSoftFetchFailure(t *testing.T) {
	store := newFakeStore()
	store.accounts = []types.MerchantConnectorAccount{
		cardAccount("mca_1", types.ConnectorStripe),
	}
	store.defaultErr = assert.AnError
	router := newTestRouter(t, store)

	chosen := choicesOf(types.ConnectorStripe)
	selected, err := router.PerformEligibilityAnalysisWithFallback(
		context.Background(), "merchant_1", chosen, paymentTx("profile_1"), nil, "profile_1")
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe}, connectorsOf(selected))
}

func TestMetadataToleranceDoesNotAlterSelection(t *testing.T) {
	store := newFakeStore()
	store.accounts = []types.MerchantConnectorAccount{
		cardAccount("mca_1", types.ConnectorStripe),
		cardAccount("mca_3", types.ConnectorCheckout),
	}
	store.setDefault("profile_1", types.TransactionPayment, types.ConnectorCheckout)
	router := newTestRouter(t, store)

	chosen := choicesOf(types.ConnectorStripe)

	clean := paymentTx("profile_1")
	cleanSelection, err := router.PerformEligibilityAnalysisWithFallback(
		context.Background(), "merchant_1", chosen, clean, nil, "profile_1")
	require.NoError(t, err)

	garbled := paymentTx("profile_1")
	garbled.Payment.PaymentIntent.Metadata = json.RawMessage(`{not valid json!!`)
	garbledSelection, err := router.PerformEligibilityAnalysisWithFallback(
		context.Background(), "merchant_1", chosen, garbled, nil, "profile_1")
	require.NoError(t, err)

	assert.Equal(t, cleanSelection, garbledSelection)
}

func TestAlgorithmCacheCoherence(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1", `{"single": {"connector": "stripe"}}`)
	router := newTestRouter(t, store)

	ctx := context.Background()
	selected, err := router.PerformStaticRoutingV1(ctx, "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe}, connectorsOf(selected))
	assert.Equal(t, 1, store.algorithmFetches)

	// Second resolution is served from the cache.
	_, err = router.PerformStaticRoutingV1(ctx, "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.algorithmFetches)

	// Refresh reloads from the store and republishes; the next resolution
	// observes the new value.
	store.setAlgorithm("profile_1", "algo_1", `{"single": {"connector": "adyen"}}`)
	_, err = router.RefreshRoutingCache(ctx, "merchant_1", "profile_1", "algo_1", types.TransactionPayment)
	require.NoError(t, err)

	selected, err = router.PerformStaticRoutingV1(ctx, "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorAdyen}, connectorsOf(selected))
	assert.Equal(t, 2, store.algorithmFetches)
}

func TestFailedCompilationIsNotCached(t *testing.T) {
	store := newFakeStore()
	store.setAlgorithm("profile_1", "algo_1",
		`{"advanced": {
			"default_selection": {"priority": [{"connector": "stripe"}]},
			"rules": [{
				"name": "broken",
				"connector_selection": {"priority": [{"connector": "adyen"}]},
				"statements": [{"condition": [
					{"lhs": "no_such_key", "comparison": "equal", "value": {"type": "enum_variant", "value": "x"}}
				]}]
			}]
		}}`)
	router := newTestRouter(t, store)

	ctx := context.Background()
	_, err := router.PerformStaticRoutingV1(ctx, "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeDslBackendInitError, CodeOf(err))

	// The failure was not published: a corrected row is picked up on the
	// next call.
	store.setAlgorithm("profile_1", "algo_1", `{"single": {"connector": "stripe"}}`)
	selected, err := router.PerformStaticRoutingV1(ctx, "merchant_1", algoRef("algo_1"), paymentTx("profile_1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectorName{types.ConnectorStripe}, connectorsOf(selected))
}
