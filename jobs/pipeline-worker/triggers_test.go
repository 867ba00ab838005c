package main

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestParticipantGone(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"cascade deleted participant", mongo.ErrNoDocuments, true},
		{"wrapped not found", fmt.Errorf("load participant: %w", mongo.ErrNoDocuments), true},
		{"invalid id in payload", primitive.ErrInvalidHex, true},
		{"transient db error", errors.New("connection reset"), false},
		{"no error", nil, false},
	}

	for _, test := range tests {
		if got := participantGone(test.err); got != test.expected {
			t.Errorf("%s: got %v, want %v", test.name, got, test.expected)
		}
	}
}
