package response

import (
	"net/http"

	"github.com/vkviyu/wsbridge/utils/jsonutil"
)

// ErrorBody is the JSON shape of every error reply.
type ErrorBody struct {
	Error string `json:"error"`
}

func WriteJSONResponse(w http.ResponseWriter, body any, statusCode int) {
	data, err := jsonutil.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func WriteOK(w http.ResponseWriter, body any) {
	WriteJSONResponse(w, body, http.StatusOK)
}

// WriteError replies with statusCode and {"error": message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, ErrorBody{Error: message}, statusCode)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}
