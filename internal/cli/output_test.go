package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonxunQuantum/CASMcode/internal/monte"
	"github.com/LonxunQuantum/CASMcode/internal/settings"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"conditions": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"conditions": float64(3)}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TextSuccessUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(RunSummary{Conditions: 2, OutputDir: "out", Seed: 7, Steps: 64}))
	assert.Equal(t, "Completed 2 condition(s) in out (seed 7, 64 steps this run)\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("CONDITIONS_CHANGED", "run failed", map[string]int{"condition": 1}))
	assert.Contains(t, buf.String(), "Error [CONDITIONS_CHANGED]: run failed")
	assert.Contains(t, buf.String(), "Details: map[condition:1]")
}

func TestOutputFormatter_FailRunError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := monte.Errorf(monte.ErrCodeConditionsChanged, "persisted conditions differ").
		AtCondition(2).InFile("out/conditions.2/conditions.json")
	err := formatter.Fail("run failed", cause)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, monte.IsCode(err, monte.ErrCodeConditionsChanged))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONDITIONS_CHANGED", resp.Error.Code)
	assert.Equal(t, map[string]any{
		"condition": float64(2),
		"file":      "out/conditions.2/conditions.json",
	}, resp.Error.Details)
}

func TestOutputFormatter_FailSettingsError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail("failed to load settings", &settings.Error{Field: "driver.mode", Message: "required"})
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [SETTINGS]")
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"run error", monte.Errorf(monte.ErrCodeNoOutputFormat, "none"), "NO_OUTPUT_FORMAT"},
		{"wrapped run error", WrapExitError(ExitFailure, "run failed", monte.Errorf(monte.ErrCodeMalformedResults, "bad")), "MALFORMED_RESULTS"},
		{"settings error", &settings.Error{Field: "x", Message: "y"}, "SETTINGS"},
		{"other", errors.New("boom"), "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestClassifyInvalidSettings(t *testing.T) {
	err := classify("setup", monte.Errorf(monte.ErrCodeInvalidSettings, "unknown quantity").ForSetting("data/measurements"))
	assert.Equal(t, ExitCommandError, err.Code)

	err = classify("run", monte.Errorf(monte.ErrCodeConflictingBounds, "min > max"))
	assert.Equal(t, ExitFailure, err.Code)
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)

	assert.Equal(t, "failed to open database: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(cause))
	assert.Equal(t, "no database", NewExitError(ExitCommandError, "no database").Error())
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("next condition to run: %d", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "next condition to run: 3\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.Equal(t, "next condition to run: 3\n", errOut.String())
}
