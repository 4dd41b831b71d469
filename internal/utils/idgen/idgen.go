package idgen

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewChatID returns a new 24 character hex ObjectID.
// Every backend uses the same format so chat URLs stay valid when DB_BACKEND changes.
func NewChatID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidChatID reports whether value is a hex ObjectID.
func IsValidChatID(value string) bool {
	return primitive.IsValidObjectID(value)
}
