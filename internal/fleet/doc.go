// Package fleet collects disk and memory utilization from a set of remote
// machines and classifies the figures against alert thresholds.
//
// # Collection
//
// A Coordinator fans out over targets with a bounded number of workers.
// Each worker creates its own Transport, submits DiagnosticScript, and polls
// until the command is terminal or the poll budget runs out:
//
//	submit ──fail──▶ TransportError
//	  │
//	  ▼
//	wait, poll ──error / terminal failure──▶ TransportError
//	  │    ▲
//	  │    └── not terminal (up to MaxPolls) ──▶ Timeout
//	  ▼
//	parse ──fail──▶ ParseError
//	  │
//	  ▼
//	Success(sample)
//
// Every target yields exactly one Result. Per-target failures never cross
// worker boundaries and never fail the batch; the only error Collect returns
// is a configuration error detected before any work starts.
//
// # Classification
//
// Classify partitions a batch into OK targets, disk and memory alerts
// (thresholds are inclusive, and a target can appear in both alert lists),
// and errors.
package fleet
