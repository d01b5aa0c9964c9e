// utilitários pequenos de formatação/resposta para headers, logs e JSON.

package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// maskKey encurta a API key para log (5 primeiros caracteres).
func maskKey(k string) string {
	if len(k) <= 5 {
		return k
	}
	return k[:5] + "..."
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}
