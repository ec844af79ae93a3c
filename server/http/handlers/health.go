package handlers

import (
	"net/http"

	"pos-catalog/internal/respond"
)

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Products int    `json:"products"`
}

// Health: проверка живости; products показывает размер загруженного каталога.
func Health(products func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, healthResponse{Status: "ok", Service: "pos-catalog", Products: products()})
	}
}
