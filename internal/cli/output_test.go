package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitCommandError, "database not found")
	assert.Equal(t, "database not found", err.Error())
	assert.Equal(t, ExitCommandError, err.Code)
	assert.Nil(t, err.Unwrap())
}

func TestExitErrorWrapped(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)

	assert.Equal(t, "failed to open database: no such file", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "scenarios failed")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestWriteJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	err := writeJSON(cmd, CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	})
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.NotNil(t, response.Data)
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "error",
		Error: &CLIError{
			Code:    "E_TEST_FAILED",
			Message: "2 scenario(s) failed",
			Details: []string{"remote_injection"},
		},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "error", decoded.Status)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "E_TEST_FAILED", decoded.Error.Code)
	assert.Equal(t, "2 scenario(s) failed", decoded.Error.Message)
}
