package common

import (
	"encoding/json"
	"net/http"
)

// Response is the uniform envelope every endpoint returns, error or success.
type Response struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
}

func RespondWithJSON(w http.ResponseWriter, code int, message string, data interface{}) {
	envelope := Response{
		Success:    code < http.StatusBadRequest,
		StatusCode: code,
		Message:    message,
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"statusCode":500,"message":"Failed to marshal JSON response","data":null}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

// RespondWithError maps a domain error to its status code and public message.
func RespondWithError(w http.ResponseWriter, err error) {
	RespondWithJSON(w, HTTPStatusFromError(err), PublicMessage(err), nil)
}
