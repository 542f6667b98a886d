package genai

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImage(t *testing.T) {
	png := append([]byte{0x89}, []byte("PNG\r\n\x1a\nrest")...)

	tests := []struct {
		name     string
		ref      string
		wantURL  string
		wantMIME string
		wantErr  bool
	}{
		{name: "https url", ref: "https://example.com/rooms/living.png", wantURL: "https://example.com/rooms/living.png", wantMIME: "image/png"},
		{name: "url without extension", ref: "http://example.com/img", wantURL: "http://example.com/img", wantMIME: "image/jpeg"},
		{name: "data uri", ref: "data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("x")), wantMIME: "image/webp"},
		{name: "raw base64 png", ref: base64.StdEncoding.EncodeToString(png), wantMIME: "image/png"},
		{name: "gs uri", ref: "gs://catalog-rooms/uploads/den.webp", wantURL: "gs://catalog-rooms/uploads/den.webp", wantMIME: "image/webp"},
		{name: "gs uri without object", ref: "gs://catalog-rooms/", wantErr: true},
		{name: "gs uri without bucket", ref: "gs:///den.png", wantErr: true},
		{name: "empty", ref: "  ", wantErr: true},
		{name: "data uri not base64", ref: "data:image/png,abc", wantErr: true},
		{name: "data uri not image", ref: "data:text/plain;base64,YQ==", wantErr: true},
		{name: "garbage", ref: "not an image!", wantErr: true},
		{name: "url without host", ref: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseImage(tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, img.URL)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
			if tt.wantURL == "" {
				assert.NotEmpty(t, img.Data)
			}
		})
	}
}
