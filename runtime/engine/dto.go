package engine

import (
	"github.com/AltairaLabs/TaskKit/runtime/variables"
)

// FetchAndLockRequest is the body of POST /external-task/fetchAndLock.
type FetchAndLockRequest struct {
	WorkerID    string `json:"workerId"`
	MaxTasks    int    `json:"maxTasks"`
	UsePriority bool   `json:"usePriority"`
	// AsyncResponseTimeout enables long polling, in milliseconds.
	AsyncResponseTimeout int64          `json:"asyncResponseTimeout,omitempty"`
	Topics               []TopicRequest `json:"topics"`
}

// TopicRequest selects the tasks fetched for one topic.
type TopicRequest struct {
	TopicName string `json:"topicName"`
	// LockDuration is in milliseconds.
	LockDuration int64 `json:"lockDuration"`
	// Variables limits the fetched variables; nil fetches all of them.
	Variables                   []string       `json:"variables,omitempty"`
	LocalVariables              bool           `json:"localVariables,omitempty"`
	BusinessKey                 string         `json:"businessKey,omitempty"`
	ProcessDefinitionID         string         `json:"processDefinitionId,omitempty"`
	ProcessDefinitionIDIn       []string       `json:"processDefinitionIdIn,omitempty"`
	ProcessDefinitionKey        string         `json:"processDefinitionKey,omitempty"`
	ProcessDefinitionKeyIn      []string       `json:"processDefinitionKeyIn,omitempty"`
	ProcessDefinitionVersionTag string         `json:"processDefinitionVersionTag,omitempty"`
	ProcessVariables            map[string]any `json:"processVariables,omitempty"`
	WithoutTenantID             bool           `json:"withoutTenantId,omitempty"`
	TenantIDIn                  []string       `json:"tenantIdIn,omitempty"`
	IncludeExtensionProperties  bool           `json:"includeExtensionProperties,omitempty"`
}

// LockedTask is one task returned by fetch and lock.
type LockedTask struct {
	ID                          string                     `json:"id"`
	TopicName                   string                     `json:"topicName"`
	WorkerID                    string                     `json:"workerId"`
	ActivityID                  string                     `json:"activityId"`
	ActivityInstanceID          string                     `json:"activityInstanceId"`
	ExecutionID                 string                     `json:"executionId"`
	ProcessDefinitionID         string                     `json:"processDefinitionId"`
	ProcessDefinitionKey        string                     `json:"processDefinitionKey"`
	ProcessDefinitionVersionTag string                     `json:"processDefinitionVersionTag"`
	ProcessInstanceID           string                     `json:"processInstanceId"`
	BusinessKey                 string                     `json:"businessKey"`
	TenantID                    string                     `json:"tenantId"`
	ErrorMessage                string                     `json:"errorMessage"`
	ErrorDetails                string                     `json:"errorDetails"`
	Retries                     *int                       `json:"retries"`
	Priority                    int64                      `json:"priority"`
	LockExpirationTime          string                     `json:"lockExpirationTime"`
	CreateTime                  string                     `json:"createTime"`
	Variables                   map[string]variables.Field `json:"variables"`
	ExtensionProperties         map[string]string          `json:"extensionProperties"`
}

// CompleteRequest is the body of POST /external-task/{id}/complete.
type CompleteRequest struct {
	WorkerID       string                     `json:"workerId"`
	Variables      map[string]variables.Field `json:"variables,omitempty"`
	LocalVariables map[string]variables.Field `json:"localVariables,omitempty"`
}

// FailureRequest is the body of POST /external-task/{id}/failure.
type FailureRequest struct {
	WorkerID     string `json:"workerId"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
	Retries      int    `json:"retries"`
	// RetryTimeout is in milliseconds.
	RetryTimeout   int64                      `json:"retryTimeout"`
	Variables      map[string]variables.Field `json:"variables,omitempty"`
	LocalVariables map[string]variables.Field `json:"localVariables,omitempty"`
}

// BpmnErrorRequest is the body of POST /external-task/{id}/bpmnError.
type BpmnErrorRequest struct {
	WorkerID     string                     `json:"workerId"`
	ErrorCode    string                     `json:"errorCode"`
	ErrorMessage string                     `json:"errorMessage,omitempty"`
	Variables    map[string]variables.Field `json:"variables,omitempty"`
}

// ExtendLockRequest is the body of POST /external-task/{id}/extendLock.
type ExtendLockRequest struct {
	WorkerID string `json:"workerId"`
	// NewDuration is in milliseconds, counted from now.
	NewDuration int64 `json:"newDuration"`
}

// UnlockRequest is the (empty) body of POST /external-task/{id}/unlock.
type UnlockRequest struct{}

// exceptionBody is the engine's error payload.
type exceptionBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}
