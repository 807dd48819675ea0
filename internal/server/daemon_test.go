package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvquery/bloomidx"
)

func newTestDaemon() *UDSDaemon {
	return NewUDSDaemon(DaemonConfig{}, bloomidx.New())
}

func TestProcessRequestPing(t *testing.T) {
	d := newTestDaemon()
	resp := d.processRequest([]byte(`{"action":"ping"}`))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &got))
	assert.Equal(t, true, got["pong"])
	assert.Nil(t, got["error"])
}

func TestProcessRequestAddAndSearch(t *testing.T) {
	d := newTestDaemon()

	addResp := d.processRequest([]byte(`{"action":"add","text":"hello world"}`))
	var addGot map[string]interface{}
	require.NoError(t, json.Unmarshal(addResp, &addGot))
	assert.EqualValues(t, 1, addGot["key"])

	searchResp := d.processRequest([]byte(`{"action":"search","query":"hello world","exact":true}`))
	var searchGot map[string]interface{}
	require.NoError(t, json.Unmarshal(searchResp, &searchGot))
	keys, ok := searchGot["keys"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, keys, float64(1))
}

func TestProcessRequestUnknownAction(t *testing.T) {
	d := newTestDaemon()
	resp := d.processRequest([]byte(`{"action":"bogus"}`))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &got))
	assert.NotNil(t, got["error"])
}

func TestProcessRequestInvalidJSON(t *testing.T) {
	d := newTestDaemon()
	resp := d.processRequest([]byte(`not json`))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &got))
	assert.NotNil(t, got["error"])
}

func TestProcessRequestStatusAndClear(t *testing.T) {
	d := newTestDaemon()
	d.processRequest([]byte(`{"action":"add","text":"some text here"}`))

	statusResp := d.processRequest([]byte(`{"action":"status"}`))
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(statusResp, &status))
	assert.EqualValues(t, 1, status["size"])

	clearResp := d.processRequest([]byte(`{"action":"clear"}`))
	var cleared map[string]interface{}
	require.NoError(t, json.Unmarshal(clearResp, &cleared))
	assert.Equal(t, true, cleared["cleared"])
	assert.EqualValues(t, 0, d.index.Size())
}
