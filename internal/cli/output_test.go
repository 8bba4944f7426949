package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/value"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E001", "something failed", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "something failed", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("E002", "bad input", "line 3"))
	assert.Equal(t, "Error [E002]: bad input\nDetails: line 3\n", buf.String())
}

func TestOutputFormatter_TextErrorHidesDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E002", "bad input", "line 3"))
	assert.Equal(t, "Error [E002]: bad input\n", buf.String())
}

func TestOutputFormatter_RecordsText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	recs := []value.Object{
		value.MustObject(map[string]any{"name": "Ann", "id": "a"}),
		value.MustObject(map[string]any{"id": "b", "tags": []any{"x"}}),
	}
	require.NoError(t, formatter.Records(recs))
	assert.Equal(t, "{\"id\":\"a\",\"name\":\"Ann\"}\n{\"id\":\"b\",\"tags\":[\"x\"]}\n", buf.String())
}

func TestOutputFormatter_RecordsJSONEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Records(nil))
	assert.JSONEq(t, `{"status":"ok","data":[]}`, buf.String())
}

func TestOutputFormatter_StoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{
			name:     "backend failure",
			err:      &collection.Error{Code: collection.ErrCodeBackendFailure, Message: "fetch failed"},
			wantCode: "BACKEND_FAILURE",
			wantExit: ExitFailure,
		},
		{
			name:     "invalid argument",
			err:      fmt.Errorf("wrapped: %w", &collection.Error{Code: collection.ErrCodeInvalidArgument}),
			wantCode: "INVALID_ARGUMENT",
			wantExit: ExitCommandError,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			wantCode: ErrCodeGeneric,
			wantExit: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.StoreError("fetch", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "fetch failed", resp.Error.Message)
		})
	}
}

func TestVerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}
