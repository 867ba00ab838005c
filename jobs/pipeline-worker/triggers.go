package main

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// participantGone reports whether a trigger references a participant that
// can never be loaded again, either because the row was cascade deleted or
// because the payload carries an invalid id. Such triggers are consumed
// instead of re-queued; re-queueing would poison the topic forever.
func participantGone(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex)
}
