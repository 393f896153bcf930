package util_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskcanvas/analysis-client/internal/util"
)

func TestDurationJSON(t *testing.T) {
	data, err := json.Marshal(util.Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	require.Equal(t, `"1m30s"`, string(data))

	var d util.Duration
	require.NoError(t, json.Unmarshal([]byte(`"45s"`), &d))
	require.Equal(t, 45*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	require.Equal(t, time.Second, d.Duration)

	require.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	require.Error(t, json.Unmarshal([]byte(`true`), &d))
}
