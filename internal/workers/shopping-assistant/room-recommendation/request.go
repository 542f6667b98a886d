// internal/workers/shopping-assistant/room-recommendation/request.go
package roomrecommendation

import (
	"encoding/json"
	"strconv"
	"strings"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/genai"
	"shopping-assistant/internal/common/validation"
	"shopping-assistant/internal/models"
)

// ParseRequest validates a raw conversation body. Every failure is a
// validation error; nothing downstream is called.
func ParseRequest(raw []byte) (*Request, error) {
	result, err := validation.ConversationSchema.ValidateBytes(raw)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, apperrors.NewValidationError(result.Summary())
	}

	var body models.ConversationRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperrors.NewValidationError("malformed request body")
	}

	message := unescape(body.Message)
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message: must not be blank")
	}

	image, err := genai.ParseImage(body.Image)
	if err != nil {
		return nil, apperrors.NewValidationError("image: " + err.Error())
	}

	return &Request{Message: message, Image: image}, nil
}

// unescape decodes each valid %XX escape on its own. Invalid escapes are
// kept verbatim, '+' is not treated as a space and undecodable bytes become
// U+FFFD.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}
