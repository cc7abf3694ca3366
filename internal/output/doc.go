// Package output renders fishviz results for people and scripts.
//
// # Output Types
//
//   - SummaryOutput: per-genotype summary traces (fishviz stats)
//   - RunListOutput: recorded runs (fishviz history)
//
// # Format Types
//
//   - YAML (default): human-readable
//   - JSON: machine-readable, same structure as YAML
//
// Missing values (a time point no fish contributed to, or a confidence bound
// no bootstrap replicate produced) are emitted as null.
//
// # Workbooks
//
// WriteWorkbook writes the resampled data and the summary traces of a run to
// an .xlsx workbook with one sheet each.
package output
