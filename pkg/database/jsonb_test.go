package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBScan(t *testing.T) {
	type doc struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name     string
		src      any
		expected doc
		wantErr  bool
	}{
		{name: "should scan bytes", src: []byte(`{"name":"a"}`), expected: doc{Name: "a"}},
		{name: "should scan a string", src: `{"name":"b"}`, expected: doc{Name: "b"}},
		{name: "should reset on nil", src: nil, expected: doc{}},
		{name: "should reject other types", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := JSONB[doc]{Data: doc{Name: "stale"}}
			err := value.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value.GetValue())
		})
	}
}

func TestJSONBValuePreservesRawOrder(t *testing.T) {
	raw := json.RawMessage(`{"z":1,"a":2}`)
	value, err := JSONB[json.RawMessage]{Data: raw}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, value)
}

func TestJoinedTxDoesNotClose(t *testing.T) {
	owner := &Transaction{}
	joined := joinedTx{owner}

	require.NoError(t, joined.Commit(context.Background()))
	require.NoError(t, joined.Rollback(context.Background()))
	assert.True(t, owner.IsOpen())
}
