package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Endpoint_Rewrites_Scheme_And_Appends_Token(t *testing.T) {
	req := require.New(t)

	got, err := Endpoint("https://api.example.com", "tok123")
	req.NoError(err)
	req.Equal("wss://api.example.com/chat/ws?token=tok123", got)

	got, err = Endpoint("http://localhost:8000", "tok123")
	req.NoError(err)
	req.Equal("ws://localhost:8000/chat/ws?token=tok123", got)
}

func Test_Endpoint_Handles_Trailing_Slash_And_Prefix(t *testing.T) {
	req := require.New(t)

	got, err := Endpoint("https://api.example.com/backoffice/", "t")
	req.NoError(err)
	req.Equal("wss://api.example.com/backoffice/chat/ws?token=t", got)
}

func Test_Endpoint_Accepts_Realtime_Scheme(t *testing.T) {
	got, err := Endpoint("wss://api.example.com", "t")
	require.NoError(t, err)
	require.Equal(t, "wss://api.example.com/chat/ws?token=t", got)
}

func Test_Endpoint_Rejects_Unknown_Scheme(t *testing.T) {
	_, err := Endpoint("ftp://api.example.com", "t")
	require.Error(t, err)
}
