package services

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("invalid credentials")
	ErrAIUnavailable = errors.New("AI service is not configured")
	ErrAIResponse    = errors.New("AI returned an unusable response")
)
