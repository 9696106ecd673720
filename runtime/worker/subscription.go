package worker

import (
	"context"
	"errors"
	"time"

	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/task"
)

// Handler runs the business logic for one task and reports its outcome
// through s. A handler that returns without reporting leaves the task
// locked until the lock expires.
type Handler func(ctx context.Context, t *task.ExternalTask, s *task.Service)

// Subscription binds a handler to a topic, with the filters applied when
// fetching the topic's tasks.
type Subscription struct {
	Topic   string
	Handler Handler

	// LockDuration overrides the manager's lock duration when set.
	LockDuration time.Duration
	// Variables limits the fetched variables; nil fetches all of them.
	Variables      []string
	LocalVariables bool
	BusinessKey    string

	ProcessDefinitionID         string
	ProcessDefinitionIDIn       []string
	ProcessDefinitionKey        string
	ProcessDefinitionKeyIn      []string
	ProcessDefinitionVersionTag string
	ProcessVariables            map[string]any

	WithoutTenantID            bool
	TenantIDIn                 []string
	IncludeExtensionProperties bool
}

// Subscription errors.
var (
	ErrEmptyTopic       = errors.New("worker: subscription topic is empty")
	ErrNilHandler       = errors.New("worker: subscription handler is nil")
	ErrDuplicateTopic   = errors.New("worker: topic already subscribed")
	ErrNoSubscriptions  = errors.New("worker: no subscriptions")
	ErrAlreadyStarted   = errors.New("worker: already started")
	ErrNotStarted       = errors.New("worker: not started")
	ErrShutdownTimedOut = errors.New("worker: shutdown timed out")
)

func (s Subscription) validate() error {
	if s.Topic == "" {
		return ErrEmptyTopic
	}
	if s.Handler == nil {
		return ErrNilHandler
	}
	return nil
}

func (s Subscription) topicRequest(defaultLock time.Duration) engine.TopicRequest {
	lock := s.LockDuration
	if lock <= 0 {
		lock = defaultLock
	}
	return engine.TopicRequest{
		TopicName:                   s.Topic,
		LockDuration:                lock.Milliseconds(),
		Variables:                   s.Variables,
		LocalVariables:              s.LocalVariables,
		BusinessKey:                 s.BusinessKey,
		ProcessDefinitionID:         s.ProcessDefinitionID,
		ProcessDefinitionIDIn:       s.ProcessDefinitionIDIn,
		ProcessDefinitionKey:        s.ProcessDefinitionKey,
		ProcessDefinitionKeyIn:      s.ProcessDefinitionKeyIn,
		ProcessDefinitionVersionTag: s.ProcessDefinitionVersionTag,
		ProcessVariables:            s.ProcessVariables,
		WithoutTenantID:             s.WithoutTenantID,
		TenantIDIn:                  s.TenantIDIn,
		IncludeExtensionProperties:  s.IncludeExtensionProperties,
	}
}
