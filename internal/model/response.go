package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}
