package ftdi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromURL(t *testing.T) {
	testCases := []struct {
		url    string
		expect Opener
	}{
		{"ftdi://", Opener{}},
		{"ftdi://6010", Opener{ProductID: 0x6010}},
		{"ftdi://6014?index=1", Opener{ProductID: 0x6014, Index: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			require.NoError(t, err)
			o, err := FromURL(u)
			require.NoError(t, err)
			require.Equal(t, &tc.expect, o)
		})
	}
	for _, raw := range []string{"ftdi://xyz", "ftdi://?index=-1", "ftdi://?index=a"} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		_, err = FromURL(u)
		require.Errorf(t, err, raw)
	}
	require.Equal(t, "ftdi(0403:6010 #0)", (&Opener{ProductID: 0x6010}).String())
}
