// Package http implements the JSON API handlers of the attendance web
// service.
//
// Handlers stay thin: they decode and validate requests, call the
// attendance service, and render results with go-chi/render. Every error is
// passed to the shared ErrorHandler and leaves as RFC 7807 problem details.
//
// Successful list and object responses use the envelope
//
//	{"status": "success", "data": ..., "count": n}
//
// where count is present for lists only.
package http
