// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPosted counts messages accepted by the message store.
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_messages_posted_total",
		Help: "Number of messages appended to chats.",
	})

	// ChatsCreated counts chats created, labelled by chat type.
	ChatsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messenger_chats_created_total",
		Help: "Number of chats created.",
	}, []string{"type"})

	// EventsDelivered counts events pushed to live connections.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_events_delivered_total",
		Help: "Number of realtime events delivered to connected clients.",
	})

	// EventsDropped counts events dropped because a consumer was slow.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_events_dropped_total",
		Help: "Number of realtime events dropped on slow consumers.",
	})
)
