package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/linesmerrill/autodoc-api/config"
	"github.com/linesmerrill/autodoc-api/storage"
)

// UploadSigner signs direct uploads of document files
type UploadSigner interface {
	SignUpload() (*storage.UploadSignature, error)
}

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct {
	Signer UploadSigner
}

// GenerateSignature generates a signature for Cloudinary uploads
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	if c.Signer == nil {
		config.ErrorStatus("document storage is not configured", http.StatusServiceUnavailable, w, nil)
		return
	}

	sig, err := c.Signer.SignUpload()
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sig)
}
