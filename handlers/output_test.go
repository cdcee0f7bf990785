package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/models"
	"github.com/gewnthar/ulsync/services"
)

func TestGetExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"load", models.NewSyncError(models.LoadError, "loading", errors.New("x")), ExitFailure},
		{"declined", models.Errorf(models.ConfirmationDeclined, "pruning", "no"), ExitDeclined},
		{"wrapped declined", fmt.Errorf("prune: %w", models.Errorf(models.ConfirmationDeclined, "pruning", "no")), ExitDeclined},
		{"invalid query", fmt.Errorf("%w: empty call sign", services.ErrInvalidQuery), ExitCommandError},
		{"config", models.Errorf(models.ConfigError, "opening store", "bad driver"), ExitCommandError},
		{"explicit", NewExitError(ExitCommandError, "bad"), ExitCommandError},
		{"not found", fmt.Errorf("%w for K9ZZZ", ErrNotFound), ExitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "LoadError", errorCode(models.NewSyncError(models.LoadError, "loading", nil)))
	assert.Equal(t, "CommandError", errorCode(services.ErrInvalidQuery))
	assert.Equal(t, "NotFound", errorCode(fmt.Errorf("%w for K9ZZZ", ErrNotFound)))
	assert.Equal(t, "Error", errorCode(errors.New("boom")))
}

func TestExitError_Message(t *testing.T) {
	inner := errors.New("no such file")
	assert.Equal(t, "invalid configuration: no such file", WrapExitError(2, "invalid configuration", inner).Error())
	assert.Equal(t, "no such file", (&ExitError{Code: 1, Err: inner}).Error())
	assert.Equal(t, "bad", NewExitError(2, "bad").Error())
	assert.ErrorIs(t, WrapExitError(2, "x", inner), inner)
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"rows": 3}, func(io.Writer) { t.Fatal("text renderer called") }))

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data["rows"])
}

func TestOutputFormatter_JSONFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf, ErrWriter: errBuf}

	cause := models.Errorf(models.ConfirmationDeclined, "pruning", "not confirmed")
	err := f.Failure(map[string]bool{"declined": true}, cause, nil)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)
	assert.Equal(t, ExitDeclined, exitErr.Code)
	assert.Empty(t, errBuf.String())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ConfirmationDeclined", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "not confirmed")
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, ErrWriter: errBuf}

	err := f.Failure(nil, errors.New("disk full"), func(w io.Writer) { fmt.Fprintln(w, "partial") })
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "partial\n", buf.String())
	assert.Equal(t, "Error: disk full\n", errBuf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf, ErrWriter: errBuf}
	f.VerboseLog("hidden")
	assert.Empty(t, errBuf.String())

	f.Verbose = true
	f.VerboseLog("note: %s", "K1ABC")
	assert.Equal(t, "note: K1ABC\n", errBuf.String())
	assert.Empty(t, buf.String())
}
