// Package queue carries the pipeline messages between the intake API and
// the worker consumers. Delivery is at-least-once; consumers must tolerate
// redelivery.
package queue

import (
	"context"
	"fmt"
)

const (
	TOPIC_UPLOAD_EVENTS         = "upload-events"
	TOPIC_VALIDATION_TRIGGERS   = "validation-triggers"
	TOPIC_EXPORT_TRIGGERS       = "export-triggers"
	TOPIC_NOTIFICATION_TRIGGERS = "notification-triggers"
)

// InstanceTopic builds the per-tenant list name of a topic. Producers and
// consumers of different instances never share a list, so a message enqueued
// for one instance cannot be drained against another instance's database.
func InstanceTopic(instanceID string, topic string) string {
	return fmt.Sprintf("vimmer:%s:queue:%s", instanceID, topic)
}

type Queue interface {
	// Publish appends the message to the topic.
	Publish(ctx context.Context, topic string, payload interface{}) error
	// PopBatch removes and returns up to max raw messages from the topic.
	// An empty result means the topic is drained.
	PopBatch(ctx context.Context, topic string, max int) ([][]byte, error)
}

type QueueConfigYaml struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}
