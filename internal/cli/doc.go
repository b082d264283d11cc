// Package cli implements the fleetmon command-line interface.
//
// Each Cobra command delegates to a function that receives a
// WorkflowContext and plain writers, so the command logic can be tested
// without a process or a terminal.
//
// # Command Structure
//
//	fleetmon report      - Collect once and print usage plus alerts
//	fleetmon serve       - Serve usage as Prometheus metrics
//	fleetmon targets     - List the resolved fleet
//	fleetmon doctor      - Diagnose config, credentials, and connectivity
//	fleetmon version     - Print build information
//	fleetmon completion  - Generate shell completion
//
// # Workflow
//
// SetupWorkflow handles the phases shared by every command:
//
//  1. Load and validate config (--config, ./.fleetmon.yaml, global, defaults)
//  2. Apply --concurrency and --poll-interval overrides
//  3. Build the zap logger (--verbose forces debug)
//  4. Wire the directory and transport for the configured backend:
//     EC2 plus SSM, or the static host list plus SSH
//  5. Merge name filters from the config, the tag file, and --filter
//
// # Exit Codes
//
// 0 on success, 1 on any error (printed in the "✗ message" layout), and 2
// when report --fail-on-alert finds alerting or unreachable targets.
package cli
