package requests

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// CreateChatRequest is the body of POST /api/chats.
type CreateChatRequest struct {
	Text string `json:"text" binding:"required"`
}

// AppendExchangeRequest is the body of PUT /api/chats/:id.
type AppendExchangeRequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
	Img      string `json:"img,omitempty"`
}

// InvalidFields lists the request fields that failed binding validation.
// Decode errors carry no field information and yield nil.
func InvalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
