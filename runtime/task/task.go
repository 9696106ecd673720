// Package task exposes a fetched external task to handlers and reports its
// outcome back to the engine.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmespath/go-jmespath"

	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/variables"
)

// ErrVariableNotFound is returned for a variable the task does not carry.
var ErrVariableNotFound = errors.New("task: variable not found")

// ExternalTask is a locked task with its variables decoded.
//
// Variables are decoded once, when the task is built. A variable that fails
// to decode does not fail the task: its error is kept and returned by the
// accessors for that variable only.
type ExternalTask struct {
	locked engine.LockedTask
	values map[string]variables.TypedValue
	errs   map[string]error
}

// NewExternalTask decodes lt's variables with reg.
func NewExternalTask(lt engine.LockedTask, reg *variables.Registry) *ExternalTask {
	values, errs := reg.DecodeAll(lt.Variables)
	return &ExternalTask{locked: lt, values: values, errs: errs}
}

// ID returns the task id.
func (t *ExternalTask) ID() string { return t.locked.ID }

// TopicName returns the topic the task was fetched for.
func (t *ExternalTask) TopicName() string { return t.locked.TopicName }

// WorkerID returns the id of the worker holding the lock.
func (t *ExternalTask) WorkerID() string { return t.locked.WorkerID }

// ActivityID returns the id of the activity the task belongs to.
func (t *ExternalTask) ActivityID() string { return t.locked.ActivityID }

// ActivityInstanceID returns the activity instance id.
func (t *ExternalTask) ActivityInstanceID() string { return t.locked.ActivityInstanceID }

// ExecutionID returns the execution id.
func (t *ExternalTask) ExecutionID() string { return t.locked.ExecutionID }

// ProcessDefinitionID returns the process definition id.
func (t *ExternalTask) ProcessDefinitionID() string { return t.locked.ProcessDefinitionID }

// ProcessDefinitionKey returns the process definition key.
func (t *ExternalTask) ProcessDefinitionKey() string { return t.locked.ProcessDefinitionKey }

// ProcessDefinitionVersionTag returns the process definition version tag.
func (t *ExternalTask) ProcessDefinitionVersionTag() string {
	return t.locked.ProcessDefinitionVersionTag
}

// ProcessInstanceID returns the process instance id.
func (t *ExternalTask) ProcessInstanceID() string { return t.locked.ProcessInstanceID }

// BusinessKey returns the process instance's business key.
func (t *ExternalTask) BusinessKey() string { return t.locked.BusinessKey }

// TenantID returns the tenant id, empty without multi-tenancy.
func (t *ExternalTask) TenantID() string { return t.locked.TenantID }

// ErrorMessage returns the message of the last reported failure.
func (t *ExternalTask) ErrorMessage() string { return t.locked.ErrorMessage }

// ErrorDetails returns the details of the last reported failure.
func (t *ExternalTask) ErrorDetails() string { return t.locked.ErrorDetails }

// Retries returns the remaining retries. ok is false before the first
// failure has been reported.
func (t *ExternalTask) Retries() (retries int, ok bool) {
	if t.locked.Retries == nil {
		return 0, false
	}
	return *t.locked.Retries, true
}

// Priority returns the task priority.
func (t *ExternalTask) Priority() int64 { return t.locked.Priority }

// LockExpirationTime returns when the current lock expires.
func (t *ExternalTask) LockExpirationTime() (time.Time, error) {
	return parseEngineTime(t.locked.LockExpirationTime)
}

// CreateTime returns when the task was created.
func (t *ExternalTask) CreateTime() (time.Time, error) {
	return parseEngineTime(t.locked.CreateTime)
}

// ExtensionProperty returns a custom property of the task's activity.
func (t *ExternalTask) ExtensionProperty(name string) string {
	return t.locked.ExtensionProperties[name]
}

// ExtensionProperties returns a copy of all extension properties.
func (t *ExternalTask) ExtensionProperties() map[string]string {
	out := make(map[string]string, len(t.locked.ExtensionProperties))
	for k, v := range t.locked.ExtensionProperties {
		out[k] = v
	}
	return out
}

// Locked returns the task as received from the engine.
func (t *ExternalTask) Locked() engine.LockedTask { return t.locked }

// Variable returns the native value of a variable.
func (t *ExternalTask) Variable(name string) (any, error) {
	v, err := t.TypedVariable(name)
	if err != nil {
		return nil, err
	}
	return v.Value(), nil
}

// TypedVariable returns a variable with its kind.
func (t *ExternalTask) TypedVariable(name string) (variables.TypedValue, error) {
	if err, failed := t.errs[name]; failed {
		return nil, fmt.Errorf("task: variable %q: %w", name, err)
	}
	v, ok := t.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVariableNotFound, name)
	}
	return v, nil
}

// HasVariable reports whether the task carries the variable, decoded or not.
func (t *ExternalTask) HasVariable(name string) bool {
	_, ok := t.locked.Variables[name]
	return ok
}

// VariableNames returns the names of all carried variables, sorted.
func (t *ExternalTask) VariableNames() []string {
	names := make([]string, 0, len(t.locked.Variables))
	for name := range t.locked.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllVariables returns the native values of every variable that decoded.
func (t *ExternalTask) AllVariables() map[string]any {
	out := make(map[string]any, len(t.values))
	for name, v := range t.values {
		out[name] = v.Value()
	}
	return out
}

// AllTypedVariables returns every variable that decoded.
func (t *ExternalTask) AllTypedVariables() map[string]variables.TypedValue {
	out := make(map[string]variables.TypedValue, len(t.values))
	for name, v := range t.values {
		out[name] = v
	}
	return out
}

// VariableErrors returns the decode error of every variable that failed.
func (t *ExternalTask) VariableErrors() map[string]error {
	out := make(map[string]error, len(t.errs))
	for name, err := range t.errs {
		out[name] = err
	}
	return out
}

// QueryVariable evaluates a JMESPath expression against a variable, e.g.
// QueryVariable("order", "items[?qty > `1`].sku"). Struct values are
// queried through their JSON form.
func (t *ExternalTask) QueryVariable(name, expression string) (any, error) {
	value, err := t.Variable(name)
	if err != nil {
		return nil, err
	}
	data, err := queryable(value)
	if err != nil {
		return nil, fmt.Errorf("task: query %q: %w", name, err)
	}
	result, err := jmespath.Search(expression, data)
	if err != nil {
		return nil, fmt.Errorf("task: query %q: %w", name, err)
	}
	return result, nil
}

// queryable converts v into the generic shapes JMESPath walks: maps,
// slices and float64 numbers.
func queryable(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseEngineTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(variables.DefaultDateLayout, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("task: parse time %q: %w", s, err)
	}
	return ts, nil
}
