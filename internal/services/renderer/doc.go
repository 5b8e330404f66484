// Package renderer converts ad markup into PNG images through an HTTP render
// service (a headless browser behind a small JSON API).
//
// Render posts {html, width, height} to /render and expects image/png bytes
// back. HealthCheck probes /health.
package renderer
