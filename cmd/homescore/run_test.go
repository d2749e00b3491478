package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/smallbiznis/homescore/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary(failed int) scheduler.RunSummary {
	started := time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC)
	summary := scheduler.RunSummary{
		RunID:      "01J1RUN",
		Period:     "2024-07",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Total:      3,
		Succeeded:  3 - failed,
		Failed:     failed,
	}
	if failed > 0 {
		summary.Failures = []scheduler.PropertyFailure{{PropertyID: "prop-003", Reason: "boom"}}
	}
	return summary
}

func TestReportRunExitStatusMatchesAcrossFormats(t *testing.T) {
	for _, asJSON := range []bool{false, true} {
		var buf bytes.Buffer
		err := reportRun(&buf, testSummary(1), asJSON)
		require.Error(t, err, "json=%v", asJSON)
		assert.Contains(t, err.Error(), "1 of 3 properties failed")
		assert.Contains(t, buf.String(), "prop-003")

		buf.Reset()
		assert.NoError(t, reportRun(&buf, testSummary(0), asJSON), "json=%v", asJSON)
	}
}

func TestReportRunJSON(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, reportRun(&buf, testSummary(1), true))

	var decoded scheduler.RunSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2024-07", decoded.Period)
	assert.Equal(t, 1, decoded.Failed)
}
