package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/autodoc-api/api/handlers"
	"github.com/linesmerrill/autodoc-api/storage"
)

type fakeSigner struct {
	sig *storage.UploadSignature
	err error
}

func (f fakeSigner) SignUpload() (*storage.UploadSignature, error) { return f.sig, f.err }

func TestCloudinaryHandler_GenerateSignature(t *testing.T) {
	c := handlers.CloudinaryHandler{Signer: fakeSigner{sig: &storage.UploadSignature{Timestamp: "1717243200", Signature: "abc", APIKey: "key", CloudName: "demo"}}}

	rr := httptest.NewRecorder()
	c.GenerateSignature(rr, httptest.NewRequest("POST", "/api/v1/documents/signature", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got storage.UploadSignature
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.Signature)
	assert.Equal(t, "demo", got.CloudName)
}

func TestCloudinaryHandler_NotConfigured(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.CloudinaryHandler{}.GenerateSignature(rr, httptest.NewRequest("POST", "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCloudinaryHandler_SignError(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.CloudinaryHandler{Signer: fakeSigner{err: errors.New("mocked-error")}}.GenerateSignature(rr, httptest.NewRequest("POST", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
