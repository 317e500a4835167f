package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "12.5000", NewQuantityFromFloat64(12.5).String())
	assert.Equal(t, "-0.2500", NewQuantityFromFloat64(-0.25).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	type payload struct {
		Qty Quantity `json:"qty"`
	}

	data, err := json.Marshal(payload{Qty: NewQuantityFromFloat64(3.75)})
	require.NoError(t, err)
	assert.Equal(t, `{"qty":3.7500}`, string(data))

	var out payload
	require.NoError(t, json.Unmarshal([]byte(`{"qty":3.75}`), &out))
	assert.Equal(t, NewQuantityFromFloat64(3.75), out.Qty)

	require.NoError(t, json.Unmarshal([]byte(`{"qty":"10.0001"}`), &out))
	assert.Equal(t, Quantity(100001), out.Qty)

	require.NoError(t, json.Unmarshal([]byte(`{"qty":null}`), &out))
	assert.True(t, out.Qty.IsZero())
}

func TestQuantityUnmarshalParam(t *testing.T) {
	var q Quantity
	require.NoError(t, q.UnmarshalParam("70"))
	assert.Equal(t, NewQuantityFromFloat64(70), q)

	require.NoError(t, q.UnmarshalParam("-1.5"))
	assert.Equal(t, NewQuantityFromFloat64(-1.5), q)

	require.Error(t, q.UnmarshalParam(""))
	require.Error(t, q.UnmarshalParam("abc"))
}

func TestQuantityTruncatesExtraDigits(t *testing.T) {
	var q Quantity
	require.NoError(t, q.UnmarshalParam("1.23456789"))
	assert.Equal(t, Quantity(12345), q)
}
