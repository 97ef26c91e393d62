package domain

import "net/http"

// Response is the JSON envelope every API response body is serialized into.
// Data is null on failures.
type Response[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// Success returns a 200 envelope with the default "success" message.
func Success[T any](data T) Response[T] {
	return Response[T]{Status: http.StatusOK, Message: "success", Data: &data}
}

// Created returns a 201 envelope for newly created resources.
func Created[T any](data T) Response[T] {
	return Response[T]{Status: http.StatusCreated, Message: "created", Data: &data}
}

// SuccessWithMessage returns a 200 envelope with a custom message.
func SuccessWithMessage[T any](message string, data T) Response[T] {
	return Response[T]{Status: http.StatusOK, Message: message, Data: &data}
}

// Failure returns an envelope without data.
func Failure(status int, message string) Response[struct{}] {
	return Response[struct{}]{Status: status, Message: message}
}
