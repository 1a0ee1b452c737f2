package api

import (
	"encoding/json"
	"net/http"

	"github.com/mailru/easyjson"
)

// WriteJSON writes v with the given status. Values that carry their own
// easyjson encoder skip reflection.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	var (
		b   []byte
		err error
	)
	if m, ok := v.(easyjson.Marshaler); ok {
		b, err = easyjson.Marshal(m)
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL","message":"Internal server error"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
