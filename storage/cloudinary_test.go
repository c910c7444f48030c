package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDestroyer struct {
	params []uploader.DestroyParams
	result *uploader.DestroyResult
	err    error
}

func (f *fakeDestroyer) Destroy(_ context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.params = append(f.params, params)
	return f.result, f.err
}

func TestParseAssetURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		resourceType string
		publicID     string
		wantErr      bool
	}{
		{"raw keeps extension", "https://res.cloudinary.com/demo/raw/upload/v1712345678/docs/soap.pdf", "raw", "docs/soap.pdf", false},
		{"image drops extension", "https://res.cloudinary.com/demo/image/upload/v1/docs/permiso.pdf", "image", "docs/permiso", false},
		{"no version", "https://res.cloudinary.com/demo/raw/upload/revision.pdf", "raw", "revision.pdf", false},
		{"not an upload", "https://res.cloudinary.com/demo/raw/fetch/x.pdf", "", "", true},
		{"too short", "https://example.com/file.pdf", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resourceType, publicID, err := ParseAssetURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotCloudinaryURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.resourceType, resourceType)
			assert.Equal(t, tt.publicID, publicID)
		})
	}
}

func TestCloudinary_DeleteByURL(t *testing.T) {
	d := &fakeDestroyer{result: &uploader.DestroyResult{Result: "ok"}}
	c := NewCloudinaryWith(d, "demo", "key", "secret", "")

	err := c.DeleteByURL(context.Background(), "https://res.cloudinary.com/demo/raw/upload/v1/docs/soap.pdf")

	require.NoError(t, err)
	require.Len(t, d.params, 1)
	assert.Equal(t, "docs/soap.pdf", d.params[0].PublicID)
	assert.Equal(t, "raw", d.params[0].ResourceType)
}

func TestCloudinary_DeleteNotFoundIsFine(t *testing.T) {
	c := NewCloudinaryWith(&fakeDestroyer{result: &uploader.DestroyResult{Result: "not found"}}, "demo", "key", "secret", "")

	assert.NoError(t, c.Delete(context.Background(), "raw", "docs/soap.pdf"))
}

func TestCloudinary_DeleteErrors(t *testing.T) {
	c := NewCloudinaryWith(&fakeDestroyer{err: errors.New("mocked-error")}, "demo", "key", "secret", "")
	assert.ErrorContains(t, c.Delete(context.Background(), "raw", "a.pdf"), "mocked-error")

	c = NewCloudinaryWith(&fakeDestroyer{result: &uploader.DestroyResult{Error: api.ErrorResp{Message: "bad key"}}}, "demo", "key", "secret", "")
	assert.ErrorContains(t, c.Delete(context.Background(), "raw", "a.pdf"), "bad key")
}

func TestCloudinary_SignUpload(t *testing.T) {
	c := NewCloudinaryWith(&fakeDestroyer{}, "demo", "key", "secret", "docs")
	c.now = func() time.Time { return time.Unix(1718000000, 0) }

	sig, err := c.SignUpload()

	require.NoError(t, err)
	sum := sha1.Sum([]byte("timestamp=1718000000&upload_preset=docs" + "secret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), sig.Signature)
	assert.Equal(t, "1718000000", sig.Timestamp)
	assert.Equal(t, "key", sig.APIKey)
	assert.Equal(t, "demo", sig.CloudName)
}
