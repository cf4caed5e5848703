// Package pipeline provides a sequential state-passing pipeline.
//
// A pipeline is an ordered list of steps. Each step declares the state keys it reads and the single key
// it writes, and wraps one external call: a model inference or a tool invocation. A run threads a fresh
// write-once State through the steps strictly in declaration order. Step n+1 never starts before step n
// returned, and there is no fan-out, branching or retry.
//
// A step only sees its declared inputs through a View, so it cannot depend on keys it did not declare. A step
// whose inputs are absent fails before its collaborator is called. Writing a key twice is rejected: two steps
// declaring the same output fail at assembly time, before any run.
//
// The pipeline stops on the first error. The result of a failed run keeps every output produced by the
// steps that completed before the failure, together with the index and name of the failed step, so it can
// be diagnosed without running it again.
//
// Pipeline options observe the assembly and the runs. The measure and drawer packages provide options
// recording durations, exporting Prometheus metrics and drawing the pipeline graph.
package pipeline
