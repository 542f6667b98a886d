package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/validation"
	"shopping-assistant/internal/models"
	"shopping-assistant/internal/shop/support"
	roomrecommendation "shopping-assistant/internal/workers/shopping-assistant/room-recommendation"
)

var errPanic = errors.New("handler panic")

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewValidationError("request body too large")
		}
		return nil, apperrors.NewValidationError("unreadable request body")
	}
	return raw, nil
}

// decode validates raw against schema before unmarshalling into v.
func decode(raw []byte, schema *validation.Schema, v interface{}) error {
	result, err := schema.ValidateBytes(raw)
	if err != nil {
		return err
	}
	if !result.Valid {
		return apperrors.NewValidationError(result.Summary())
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.NewValidationError("malformed request body")
	}
	return nil
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := roomrecommendation.ParseRequest(raw)
	if err != nil {
		s.logger.Info("rejected conversation request", map[string]interface{}{
			"requestId": RequestIDFrom(r.Context()),
			"error":     err.Error(),
		})
		writeError(w, err)
		return
	}

	out, err := s.pipeline.Execute(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Recommendation)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Query string `json:"query"`
	}
	if err := decode(raw, validation.SearchSchema, &body); err != nil {
		writeError(w, err)
		return
	}

	products, err := s.catalog.Search(r.Context(), body.Query, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": products})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := decode(raw, validation.RecommendSchema, &body); err != nil {
		writeError(w, err)
		return
	}

	ids, err := s.catalog.ListIDs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	recommended, err := s.recommendations.ListRecommendations(r.Context(), body.UserID, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product_ids": recommended})
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		UserID    string `json:"user_id"`
		ProductID string `json:"product_id"`
		Quantity  *int32 `json:"quantity"`
	}
	if err := decode(raw, validation.CartAddSchema, &body); err != nil {
		writeError(w, err)
		return
	}

	item := models.CartItem{ProductID: body.ProductID, Quantity: 1}
	if body.Quantity != nil {
		item.Quantity = *body.Quantity
	}
	if err := s.carts.AddItem(r.Context(), body.UserID, item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Added to cart"})
}

// handleCartView also serves /personalize, which recommends what is
// already in the cart.
func (s *Server) handleCartView(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredQuery(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := s.carts.ProductIDs(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product_ids": ids})
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"answer": support.Answer(r.URL.Query().Get("question"))})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"order_status": support.OrderStatusUnavailable})
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"tracking_info": support.TrackingUnavailable})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": support.SystemStatus()})
}

func (s *Server) handleTroubleshoot(w http.ResponseWriter, r *http.Request) {
	service, err := requiredQuery(r, "service")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": support.Logs(service)})
}

func requiredQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", apperrors.NewValidationError(name + " is required")
	}
	return v, nil
}
