// Package ui provides the terminal pieces of fleetmon's CLI output.
//
// # Components Overview
//
//	Styles      - Lip Gloss styles for OK, alert, and muted text
//	ProgressBar - Collection progress on stderr, fed by the coordinator
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Healthy targets
//	ColorError     (red)    - Alerts and failed targets
//	ColorWarning   (yellow) - Warnings
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui
