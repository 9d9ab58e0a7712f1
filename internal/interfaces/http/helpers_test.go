package http

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, body io.ReadCloser, v any) {
	t.Helper()
	defer body.Close()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}
