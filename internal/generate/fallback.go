package generate

import "github.com/Icannotcodelol/onnyx/internal/types"

// FallbackTasks returns the built-in task set with fresh IDs, for
// seeding and offline runs.
func FallbackTasks() []types.TaskSpec {
	return withFreshIDs(fallbackTasks)
}

// fallbackTasks is the built-in task set used whenever the external
// generation endpoint is unconfigured or misbehaving. IDs are assigned
// fresh on every use so repeated fallback calls never collide.
var fallbackTasks = []types.TaskSpec{
	{
		Slug:    "audio-visualization-sphere",
		Title:   "Audio Visualization Sphere",
		Summary: "Render a responsive 3D-inspired audio visualization using Canvas 2D.",
		Runtime: types.RuntimeJSBrowser,
		Instructions: "Implement render(canvas, audioPCMFloat32) to animate orbiting particles " +
			"based on amplitude. Initialize under 1s and maintain 30 FPS.",
		AcceptanceCriteria: []string{
			"Animation reacts to audio amplitude",
			"Canvas clears between frames",
			"At least 50 particles with varying radii",
		},
		Starter: types.Starter{
			Language: "typescript",
			Code: `export function render(canvas: HTMLCanvasElement, audioPCMFloat32: Float32Array) {
  const ctx = canvas.getContext('2d');
  if (!ctx) throw new Error('No context');
  ctx.fillStyle = '#020512';
  ctx.fillRect(0, 0, canvas.width, canvas.height);
}`,
		},
	},
	{
		Slug:    "sort-visualizer",
		Title:   "Sort Explorer",
		Summary: "Animate an in-browser sorting visualizer with color-coded bars and controls.",
		Runtime: types.RuntimeJSBrowser,
		Instructions: "Render 64 bars. Animate bubble sort with gradient colors and highlight " +
			"comparisons. Provide play/pause controls via keyboard.",
		AcceptanceCriteria: []string{
			"Bars animate smoothly",
			"Comparisons highlighted",
			"Supports restart with R key",
		},
		Starter: types.Starter{
			Language: "typescript",
			Code: `export function render(canvas: HTMLCanvasElement) {
  const ctx = canvas.getContext('2d');
  ctx.fillStyle = '#0b102b';
  ctx.fillRect(0, 0, canvas.width, canvas.height);
}`,
		},
	},
	{
		Slug:    "responsive-grid",
		Title:   "Responsive Grid Sketch",
		Summary: "Generate an adaptive CSS grid layout with animated cards and keyboard focus.",
		Runtime: types.RuntimeJSBrowser,
		Instructions: "Implement render(container) to create a responsive grid with 12 cards, " +
			"animated hover states, and keyboard navigation cues.",
		AcceptanceCriteria: []string{
			"Grid reflows between 1-4 columns",
			"Cards animate on hover/focus",
			"Keyboard arrow keys move focus",
		},
		Starter: types.Starter{
			Language: "typescript",
			Code: `export function render(container: HTMLElement) {
  container.innerHTML = '<div style="color:white">Grid placeholder</div>';
}`,
		},
	},
}
