// Package pipeline turns cases (one full mammogram plus its ROI masks) into
// annotated images and a per-case processing record.
//
// # Components
//
//   - Aggregator processes one case: it loads the full image, normalizes and
//     reduces every mask to a region, draws the regions and writes
//     <output_dir>/<uid>.png.
//   - Batch drives the Aggregator over a list of cases, appending to the
//     ledger and to processing_log.txt after each case, printing progress
//     every ProgressEvery cases and writing "Processing results.csv" at the
//     end.
//   - ResultSink implementations persist the ledger (CSV, Postgres).
//   - Metrics collects Prometheus counters for a run.
//
// # Failure Isolation
//
// Mask failures never fail a case; the mask is skipped and a warning is
// logged. Case failures never stop a batch; they are recorded in the ledger.
//
// # Concurrency
//
// Cases are processed one at a time unless Workers is greater than one. The
// ledger, the log file and the progress counter are the only shared state
// and are guarded by mutexes. Image buffers are local to a case.
package pipeline
