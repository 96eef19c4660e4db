package activitymap

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	devconnect "github.com/goliatone/go-devconnect"
)

const (
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts a devconnect.ActivityEvent into the normalized shape.
// The channel defaults to the verb prefix, "auth" for "auth.login.success".
func Normalize(event devconnect.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	verb := strings.TrimSpace(string(event.EventType))
	userID := strings.TrimSpace(event.UserID)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	channel := options.channel
	if channel == "" {
		channel, _, _ = strings.Cut(verb, ".")
	}

	return Normalized{
		ActorID:    firstNonEmpty(userID, options.actorFallback),
		Verb:       verb,
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    channel,
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: occurredAt,
	}
}

// WithChannel pins the channel instead of deriving it from the verb.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used for events without a member,
// such as failed logins.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time used for events recorded without one.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// NewSink returns an ActivitySink that logs each event in normalized form.
// Metadata keys are logged in sorted order.
func NewSink(logger devconnect.Logger, opts ...Option) devconnect.ActivitySink {
	return devconnect.ActivitySinkFunc(func(_ context.Context, event devconnect.ActivityEvent) error {
		if logger == nil {
			return nil
		}

		n := Normalize(event, opts...)
		args := []any{
			"verb", n.Verb,
			"channel", n.Channel,
			"actor_id", n.ActorID,
			"object", n.ObjectType + ":" + n.ObjectID,
			"occurred_at", n.OccurredAt.Format(time.RFC3339),
		}
		for _, key := range slices.Sorted(maps.Keys(n.Metadata)) {
			args = append(args, key, n.Metadata[key])
		}

		logger.Info("activity", args...)
		return nil
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
