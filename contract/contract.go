//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-broker/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself: supervision, restarts and panic
// recovery are the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one client connection's receiving end. Consume must not
// block the caller indefinitely; slow sinks drop rather than stall the
// broker.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry resolves connection ids to their live sinks.
type IRegistry interface {
	Subscribe(connectionID string, sink EventSink)
	Unsubscribe(connectionID string)
	Get(connectionID string) (EventSink, bool)
}
