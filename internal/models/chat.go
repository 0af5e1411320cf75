package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is embedded inside the friend edge's `chats` array and is
// duplicated on both sides of the edge by the send operation.
type ChatMessage struct {
	ID            primitive.ObjectID `bson:"_id" json:"_id"`
	SenderEmail   string             `bson:"senderEmail" json:"senderEmail"`
	ReceiverEmail string             `bson:"receiverEmail" json:"receiverEmail"`
	Text          string             `bson:"text" json:"text"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
