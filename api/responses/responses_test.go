package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data.(map[string]any)["hello"])
	assert.Empty(t, body.Warnings)
}

func TestWriteSuccessWithTotalsWarning(t *testing.T) {
	mismatch := pkgerrors.New(pkgerrors.CodeTotalsMismatch, "client total 10.00 differs from computed 10.50").
		WithDetails(map[string]any{"difference_cents": 50})
	warning, ok := WarningFrom(mismatch)
	require.True(t, ok)

	w := httptest.NewRecorder()
	WriteSuccessWithWarnings(w, http.StatusCreated, map[string]string{"id": "o-1"}, []types.Warning{warning})

	require.Equal(t, http.StatusCreated, w.Code)
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, string(pkgerrors.CodeTotalsMismatch), body.Warnings[0].Code)
	assert.NotNil(t, body.Warnings[0].Details)

	_, ok = WarningFrom(errors.New("plain"))
	assert.False(t, ok)
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeConflict, "version mismatch").
		WithDetails(map[string]any{"current_version": 3})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusConflict, w.Code)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeConflict), body.Error.Code)
	assert.Equal(t, "version mismatch", body.Error.Message)
	assert.True(t, body.Error.Retryable)
	assert.NotNil(t, body.Error.Details)
}

func TestWriteErrorHidesAlertableMessages(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: &buf})

	w := httptest.NewRecorder()
	cause := errors.New("dial tcp 10.0.0.3:5432: connection refused")
	WriteError(context.Background(), logg, w, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, cause, "insert order"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, pkgerrors.MetadataFor(pkgerrors.CodePersistenceFailure).PublicMessage, body.Error.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.Contains(t, buf.String(), "request.error")
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Nil(t, body.Error.Details)
	assert.NotContains(t, body.Error.Message, "boom")
}
