package models

import "time"

type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	StatusCode int         `json:"statusCode"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Başarılı response için helper
func SuccessResponse(data interface{}, message string) Response {
	return Response{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: 200,
		Timestamp:  time.Now().UTC(),
	}
}

// CreatedResponse is SuccessResponse with a 201 status code.
func CreatedResponse(data interface{}, message string) Response {
	resp := SuccessResponse(data, message)
	resp.StatusCode = 201
	return resp
}

// Hata response'u için helper
func ErrorResponse(status int, message string) Response {
	return Response{
		Success:    false,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
