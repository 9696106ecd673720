// Package sdk provides a small API for running external task workers against
// a BPMN engine's REST API.
//
// A Client fetches and locks tasks for its subscribed topics, decodes their
// variables, and hands each task to the topic's handler together with a
// [task.Service] for reporting the outcome.
//
// # Quick Start
//
//	client, err := sdk.New(sdk.WithBaseURL("http://localhost:8080/engine-rest"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.Subscribe("invoice", func(ctx context.Context, t *task.ExternalTask, s *task.Service) {
//	    amount, _ := t.Variable("amount")
//	    _ = s.Complete(ctx, t, map[string]any{"approved": amount != nil}, nil)
//	})
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(context.Background())
//
// # Variables
//
// Primitive variables decode into Go values. Object variables are decoded
// with the data format named in their value info (JSON, CBOR, YAML or
// Protobuf). Register Go types to receive concrete values instead of maps:
//
//	sdk.WithObjectType("com.acme.Invoice", Invoice{})
//
// # Configuration Files
//
// A worker can also be described by an ExternalTaskClient manifest, loaded
// with [config.LoadClientConfig] and turned into options by [FromConfig].
//
// # Observability
//
// Engine requests and handler runs produce OpenTelemetry spans. WithMetrics
// records Prometheus metrics from the client's event bus and optionally
// serves them over HTTP.
package sdk
