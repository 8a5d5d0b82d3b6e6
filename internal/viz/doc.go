// Package viz draws figures in the terminal and hosts the interactive lab.
//
//   - [RenderFigure]: time series through asciigraph, phase plots on a
//     braille [Canvas] with the steady state marked
//   - [Lab]: Bubble Tea form with one field per coefficient
//
// # Key Bindings
//
//	j/k, ↑/↓ - Select a field
//	Enter    - Edit the field, Enter again to commit
//	0-9 . -  - Start editing with that character
//	Esc      - Cancel an edit
//	R        - Re-run the simulation
//	X / Y    - Cycle the horizontal / vertical axis
//	T        - Cycle color themes
//	Q        - Quit
//
// Committed input that is not a positive number is discarded and the field
// keeps its previous value. Changing axes only redraws the last run.
package viz
