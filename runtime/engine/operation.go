package engine

import "net/http"

// Operation identifies an outbound engine call. The same status code means
// different things depending on the operation that produced it.
type Operation string

// Engine operations.
const (
	OpFetchAndLock    Operation = "fetch_and_lock"
	OpUnlock          Operation = "unlock"
	OpComplete        Operation = "complete"
	OpHandleFailure   Operation = "handle_failure"
	OpHandleBpmnError Operation = "handle_bpmn_error"
	OpExtendLock      Operation = "extend_lock"
)

// operationSpec is the per-operation half of outcome translation: a
// description for messages and the statuses that carry business meaning.
type operationSpec struct {
	context  string
	statuses map[int]Kind
}

var lockedTaskStatuses = map[int]Kind{
	http.StatusBadRequest: KindNotAcquired,
	http.StatusNotFound:   KindNotFound,
}

var operations = map[Operation]operationSpec{
	OpFetchAndLock: {
		context: "fetching and locking tasks",
	},
	OpUnlock: {
		context:  "unlocking the external task",
		statuses: map[int]Kind{http.StatusNotFound: KindNotFound},
	},
	OpComplete: {
		context: "completing the external task",
		statuses: map[int]Kind{
			http.StatusBadRequest:          KindNotAcquired,
			http.StatusNotFound:            KindNotFound,
			http.StatusInternalServerError: KindNotResumed,
		},
	},
	OpHandleFailure: {
		context:  "notifying a failure",
		statuses: lockedTaskStatuses,
	},
	OpHandleBpmnError: {
		context:  "notifying a BPMN error",
		statuses: lockedTaskStatuses,
	},
	OpExtendLock: {
		context:  "extending a lock",
		statuses: lockedTaskStatuses,
	},
}

// Context describes the operation in error messages, e.g.
// "completing the external task".
func (o Operation) Context() string {
	if spec, ok := operations[o]; ok {
		return spec.context
	}
	return string(o)
}

// kindForStatus returns the semantic kind the operation assigns to status,
// or KindRejected when the status has no operation-specific meaning.
func (o Operation) kindForStatus(status int) Kind {
	if kind, ok := operations[o].statuses[status]; ok {
		return kind
	}
	return KindRejected
}
