package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/money"
)

type paymentRequest struct {
	Method       string          `json:"method"`
	CashReceived json.RawMessage `json:"cashReceived,omitempty"`
	Client       string          `json:"client,omitempty"`
}

// decodePayment accepts cashReceived either as a JSON number or as the
// string the operator typed, e.g. "10.000".
func decodePayment(w http.ResponseWriter, r *http.Request) (domain.PaymentInput, bool) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.PaymentInput{}, false
	}

	cash, err := parseCash(req.CashReceived)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.PaymentInput{}, false
	}

	return domain.PaymentInput{
		Method:       req.Method,
		CashReceived: cash,
		Client:       req.Client,
	}, true
}

func parseCash(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		return money.ParseAmount(text)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("cashReceived must be a number")
	}
	return money.ParseAmount(n.String())
}
