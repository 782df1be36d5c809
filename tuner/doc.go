// Package tuner is the online DCQCN parameter controller.
//
// # Reading Guide
//
// Start with these files to follow one control loop iteration:
//   - controller.go: polls the flow sketch, runs a monitoring round and admits episodes
//   - flows.go / classify.go: per-flow liveness and large / potential-large / small buckets
//   - divergence.go: flow-mix snapshots and the KL divergence trigger
//   - anneal.go: one simulated-annealing episode (Init → Measuring → Committed)
//
// # Architecture
//
// The monitoring loop owns the FlowTracker and writes the RatioStore; a
// running Episode reads the RatioStore to bias its search direction. At most
// one Episode runs at a time, admitted through a one-slot semaphore in the
// Controller.
// Measurements come through telemetry.Source and candidates leave through
// ParamStore, so both ends can be replaced in tests:
//   - tuner/telemetry/: sketch parsing, throughput / RTT / pause readers, change waiting
//   - tuner/trace/: episode round records, metric log, Parquet export
package tuner
