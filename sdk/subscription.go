package sdk

import (
	"maps"
	"time"

	"github.com/AltairaLabs/TaskKit/runtime/worker"
)

// SubscriptionOption narrows which tasks a subscription fetches.
type SubscriptionOption func(*worker.Subscription)

// WithTopicLockDuration overrides the client's lock duration for one topic.
func WithTopicLockDuration(d time.Duration) SubscriptionOption {
	return func(s *worker.Subscription) { s.LockDuration = d }
}

// WithVariables limits the fetched variables to names. Without it every
// variable is fetched.
func WithVariables(names ...string) SubscriptionOption {
	return func(s *worker.Subscription) { s.Variables = append([]string(nil), names...) }
}

// WithLocalVariables fetches only variables local to the task's execution.
func WithLocalVariables() SubscriptionOption {
	return func(s *worker.Subscription) { s.LocalVariables = true }
}

// WithBusinessKey only fetches tasks of process instances with key.
func WithBusinessKey(key string) SubscriptionOption {
	return func(s *worker.Subscription) { s.BusinessKey = key }
}

// WithProcessDefinitionID only fetches tasks of the given process definitions.
func WithProcessDefinitionID(ids ...string) SubscriptionOption {
	return func(s *worker.Subscription) {
		if len(ids) == 1 {
			s.ProcessDefinitionID = ids[0]
			return
		}
		s.ProcessDefinitionIDIn = append([]string(nil), ids...)
	}
}

// WithProcessDefinitionKey only fetches tasks of process definitions with
// one of keys.
func WithProcessDefinitionKey(keys ...string) SubscriptionOption {
	return func(s *worker.Subscription) {
		if len(keys) == 1 {
			s.ProcessDefinitionKey = keys[0]
			return
		}
		s.ProcessDefinitionKeyIn = append([]string(nil), keys...)
	}
}

// WithProcessDefinitionVersionTag only fetches tasks of definitions tagged tag.
func WithProcessDefinitionVersionTag(tag string) SubscriptionOption {
	return func(s *worker.Subscription) { s.ProcessDefinitionVersionTag = tag }
}

// WithProcessVariables only fetches tasks whose process instance has every
// given variable value.
func WithProcessVariables(vars map[string]any) SubscriptionOption {
	return func(s *worker.Subscription) { s.ProcessVariables = maps.Clone(vars) }
}

// WithoutTenantID only fetches tasks that belong to no tenant.
func WithoutTenantID() SubscriptionOption {
	return func(s *worker.Subscription) { s.WithoutTenantID = true }
}

// WithTenantIDs only fetches tasks of the given tenants.
func WithTenantIDs(ids ...string) SubscriptionOption {
	return func(s *worker.Subscription) { s.TenantIDIn = append([]string(nil), ids...) }
}

// WithExtensionProperties includes the activity's extension properties in
// fetched tasks.
func WithExtensionProperties() SubscriptionOption {
	return func(s *worker.Subscription) { s.IncludeExtensionProperties = true }
}
