package types

import (
	"github.com/go-playground/validator/v10"
)

// MaxBatchSize bounds the number of URLs accepted in one batch request.
const MaxBatchSize = 50

// ValidateRequest is the body of a single-URL validation request.
type ValidateRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// BatchRequest is the body of a batch validation request.
type BatchRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,max=50,dive,required,max=2048"`
}

// TokenRequest holds the subject of a token issued by the CLI.
type TokenRequest struct {
	Subject string `json:"subject" validate:"required,min=1,max=128"`
}

// Validate validates the ValidateRequest using the validator.
func (r *ValidateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the BatchRequest using the validator.
func (r *BatchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
