package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

// Decode(Encode(v)) == v for representative values, including zero values.
func TestJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	c := JSON[payload]()
	for _, v := range []payload{
		{},
		{Name: "a", Count: 1},
		{Name: "unicode αβγ", Count: -3, Tags: []string{"x", "y"}},
	} {
		data, err := c.Encode(v)
		require.NoError(t, err)
		got, err := c.Decode(data)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestJSON_DecodeGarbage(t *testing.T) {
	t.Parallel()

	_, err := JSON[payload]().Decode([]byte("{not json"))
	require.Error(t, err)
}

// Bytes is the identity codec; empty payloads round-trip too.
func TestBytes_Identity(t *testing.T) {
	t.Parallel()

	c := Bytes()
	for _, v := range [][]byte{nil, {}, []byte("blob")} {
		data, err := c.Encode(v)
		require.NoError(t, err)
		got, err := c.Decode(data)
		require.NoError(t, err)
		require.Equal(t, len(v), len(got))
		require.Equal(t, string(v), string(got))
	}
}

func TestFuncs_Adapts(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	c := Funcs(
		func(v int) ([]byte, error) { return []byte{byte(v)}, nil },
		func(data []byte) (int, error) {
			if len(data) != 1 {
				return 0, sentinel
			}
			return int(data[0]), nil
		},
	)

	data, err := c.Encode(7)
	require.NoError(t, err)
	got, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, 7, got)

	_, err = c.Decode(nil)
	require.ErrorIs(t, err, sentinel)
}
