package genai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Image is an image reference attached to a generation request. Exactly one
// of URL or Data is set.
type Image struct {
	URL      string
	MIMEType string
	Data     []byte
}

var ErrInvalidImage = errors.New("invalid image reference")

// ParseImage accepts an http(s) URL, a gs:// object URI, a data: URI or a
// raw base64 payload.
func ParseImage(ref string) (*Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}

	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: malformed url", ErrInvalidImage)
		}
		return &Image{URL: ref, MIMEType: mimeFromPath(u.Path)}, nil

	case strings.HasPrefix(ref, "gs://"):
		bucket, object, _ := strings.Cut(strings.TrimPrefix(ref, "gs://"), "/")
		if bucket == "" || object == "" {
			return nil, fmt.Errorf("%w: gs uri needs a bucket and an object", ErrInvalidImage)
		}
		return &Image{URL: ref, MIMEType: mimeFromPath(object)}, nil

	case strings.HasPrefix(ref, "data:"):
		header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data uri", ErrInvalidImage)
		}
		mimeType, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return nil, fmt.Errorf("%w: data uri must be base64 encoded", ErrInvalidImage)
		}
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, mimeType)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return &Image{MIMEType: mimeType, Data: data}, nil

	default:
		data, err := base64.StdEncoding.DecodeString(ref)
		if err != nil || len(data) == 0 {
			return nil, fmt.Errorf("%w: not a url, data uri or base64 payload", ErrInvalidImage)
		}
		return &Image{MIMEType: sniffMIME(data), Data: data}, nil
	}
}

func mimeFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}

func sniffMIME(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[1:4]) == "PNG":
		return "image/png"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	case len(data) >= 3 && string(data[0:3]) == "GIF":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
