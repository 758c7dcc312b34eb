// Package eval is the evaluation engine: every assertion and every stateful
// read a test performs goes through an Evaluator.
//
// The Evaluator decides what a failure means. Under the Immediate policy
// (Now) a failing check returns its error and the fluent chain stops. Under
// the Deferred policy (Batch) the failure is recorded in issue order, the
// check returns nil and the chain continues; the test reports every
// recorded failure at once through Flush.
//
// Both policies emit the same structured events through a logsink.Sink:
//
//	check/pass   description, testId, context
//	check/fail   description, testId, error
//
// Descriptions are Description thunks. They are rendered only when a sink
// actually needs the text, so a description that walks a large page model
// costs nothing when INFO logging is disabled.
package eval
