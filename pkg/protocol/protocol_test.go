package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepeat(t *testing.T) {
	for _, valid := range []string{"none", "track", "queue"} {
		mode, err := ParseRepeat(valid)
		require.NoError(t, err)
		assert.Equal(t, Repeat(valid), mode)
	}

	_, err := ParseRepeat("forever")
	assert.Error(t, err)
}

// The max-results field must survive the wire as a tri-state: absent, zero
// (cached-only for the downloader), or a positive cap.
func TestSearchMaxResultsTriState(t *testing.T) {
	encode := func(req Request) Request {
		data, err := json.Marshal(req)
		require.NoError(t, err)

		var out Request
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}

	absent := encode(Request{
		ID:       "1",
		Kind:     KindProvider,
		Provider: &ProviderRequest{Op: ProviderSearchTracks, Query: "q"},
	})
	assert.Nil(t, absent.Provider.MaxResults)

	zero := 0
	cachedOnly := encode(Request{
		ID:       "2",
		Kind:     KindProvider,
		Provider: &ProviderRequest{Op: ProviderSearchTracks, Query: "q", MaxResults: &zero},
	})
	require.NotNil(t, cachedOnly.Provider.MaxResults)
	assert.Equal(t, 0, *cachedOnly.Provider.MaxResults)
}

func TestResponseConstructors(t *testing.T) {
	assert.Equal(t, RespImAlive, ImAlive("x").Kind)
	assert.Equal(t, RespOk, Ok("x").Kind)

	resp := Errf("x", "no track %q", "a")
	assert.Equal(t, RespErr, resp.Kind)
	assert.Equal(t, `no track "a"`, resp.Message)
	assert.Equal(t, "x", resp.ID)
}
