package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingAlgorithmDecodeSingle(t *testing.T) {
	var algorithm RoutingAlgorithm
	require.NoError(t, json.Unmarshal([]byte(`{"single": {"connector": "stripe"}}`), &algorithm))
	assert.Equal(t, AlgorithmSingle, algorithm.Kind)
	require.NotNil(t, algorithm.Single)
	assert.Equal(t, ConnectorStripe, algorithm.Single.Connector)
}

func TestRoutingAlgorithmDecodePriority(t *testing.T) {
	var algorithm RoutingAlgorithm
	require.NoError(t, json.Unmarshal(
		[]byte(`{"priority": [{"connector": "adyen"}, {"connector": "stripe", "merchant_connector_id": "mca_7"}]}`),
		&algorithm))
	assert.Equal(t, AlgorithmPriority, algorithm.Kind)
	require.Len(t, algorithm.Priority, 2)
	require.NotNil(t, algorithm.Priority[1].MerchantConnectorID)
	assert.Equal(t, "mca_7", *algorithm.Priority[1].MerchantConnectorID)
}

func TestRoutingAlgorithmDecodeVolumeSplit(t *testing.T) {
	var algorithm RoutingAlgorithm
	require.NoError(t, json.Unmarshal(
		[]byte(`{"volume_split": [
			{"connector": {"connector": "stripe"}, "split": 70},
			{"connector": {"connector": "adyen"}, "split": 30}
		]}`), &algorithm))
	assert.Equal(t, AlgorithmVolumeSplit, algorithm.Kind)
	require.Len(t, algorithm.VolumeSplit, 2)
	assert.Equal(t, uint8(70), algorithm.VolumeSplit[0].Split)
}

func TestRoutingAlgorithmRejectsEmptyPriority(t *testing.T) {
	var algorithm RoutingAlgorithm
	err := json.Unmarshal([]byte(`{"priority": []}`), &algorithm)
	require.Error(t, err)
}

func TestRoutingAlgorithmRejectsBadSplitSum(t *testing.T) {
	var algorithm RoutingAlgorithm
	err := json.Unmarshal(
		[]byte(`{"volume_split": [
			{"connector": {"connector": "stripe"}, "split": 70},
			{"connector": {"connector": "adyen"}, "split": 40}
		]}`), &algorithm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "110")
}

func TestRoutingAlgorithmRejectsUnknownShape(t *testing.T) {
	var algorithm RoutingAlgorithm
	require.Error(t, json.Unmarshal([]byte(`{"mystery": true}`), &algorithm))
	require.Error(t, json.Unmarshal([]byte(`{"single": {"connector": "stripe"}, "priority": []}`), &algorithm))
	require.Error(t, json.Unmarshal([]byte(`{}`), &algorithm))
	require.Error(t, json.Unmarshal([]byte(`"priority"`), &algorithm))
}

func TestRoutingAlgorithmRoundTrip(t *testing.T) {
	raw := []byte(`{"priority":[{"connector":"adyen"},{"connector":"stripe"}]}`)
	var algorithm RoutingAlgorithm
	require.NoError(t, json.Unmarshal(raw, &algorithm))
	encoded, err := json.Marshal(algorithm)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(encoded))
}

func TestStraightThroughAlgorithmRejectsAdvanced(t *testing.T) {
	var algorithm StraightThroughAlgorithm
	err := json.Unmarshal(
		[]byte(`{"advanced": {"default_selection": {"priority": [{"connector": "stripe"}]}, "rules": []}}`),
		&algorithm)
	require.Error(t, err)
}

func TestMerchantAccountRoutingAlgorithmV1Shapes(t *testing.T) {
	var wrapper MerchantAccountRoutingAlgorithm

	require.NoError(t, json.Unmarshal([]byte(`{"algorithm_id": "algo_1", "timestamp": 1700000000}`), &wrapper))
	require.NotNil(t, wrapper.V1.AlgorithmID)
	assert.Equal(t, "algo_1", *wrapper.V1.AlgorithmID)

	// An empty object is a valid V1 reference with no algorithm chosen.
	require.NoError(t, json.Unmarshal([]byte(`{}`), &wrapper))
	assert.Nil(t, wrapper.V1.AlgorithmID)

	// Unknown fields signal a shape this version does not understand.
	require.Error(t, json.Unmarshal([]byte(`{"algorithm_id": "algo_1", "rollout_percent": 50}`), &wrapper))
	require.Error(t, json.Unmarshal([]byte(`[1, 2]`), &wrapper))
}

func TestConnectorSelectionDecode(t *testing.T) {
	var selection ConnectorSelection
	require.NoError(t, json.Unmarshal([]byte(`{"single": {"connector": "stripe"}}`), &selection))
	assert.Equal(t, AlgorithmSingle, selection.Kind)

	require.NoError(t, json.Unmarshal([]byte(`{"priority": [{"connector": "adyen"}]}`), &selection))
	assert.Equal(t, AlgorithmPriority, selection.Kind)

	require.Error(t, json.Unmarshal([]byte(`{"advanced": {}}`), &selection))
}

func TestRoutableConnectorChoiceEqual(t *testing.T) {
	mca := "mca_1"
	otherMca := "mca_2"

	assert.True(t, RoutableConnectorChoice{Connector: ConnectorStripe}.Equal(
		RoutableConnectorChoice{Connector: ConnectorStripe}))
	assert.True(t, RoutableConnectorChoice{Connector: ConnectorStripe, MerchantConnectorID: &mca}.Equal(
		RoutableConnectorChoice{Connector: ConnectorStripe, MerchantConnectorID: &mca}))
	assert.False(t, RoutableConnectorChoice{Connector: ConnectorStripe}.Equal(
		RoutableConnectorChoice{Connector: ConnectorAdyen}))
	assert.False(t, RoutableConnectorChoice{Connector: ConnectorStripe, MerchantConnectorID: &mca}.Equal(
		RoutableConnectorChoice{Connector: ConnectorStripe}))
	assert.False(t, RoutableConnectorChoice{Connector: ConnectorStripe, MerchantConnectorID: &mca}.Equal(
		RoutableConnectorChoice{Connector: ConnectorStripe, MerchantConnectorID: &otherMca}))
}

func TestParseConnectorName(t *testing.T) {
	name, err := ParseConnectorName("stripe")
	require.NoError(t, err)
	assert.Equal(t, ConnectorStripe, name)

	_, err = ParseConnectorName("definitely_not_a_connector")
	require.Error(t, err)
}

func TestCountryFromAlpha2(t *testing.T) {
	country, err := CountryFromAlpha2("us")
	require.NoError(t, err)
	assert.Equal(t, Country("US"), country)

	_, err = CountryFromAlpha2("USA")
	require.Error(t, err)
	_, err = CountryFromAlpha2("1x")
	require.Error(t, err)
}
