// Package services implements the attendance business logic behind the
// HTTP API.
//
// AttendanceService keeps uploaded and downloaded schedules in memory,
// keyed by a generated ID, and answers module, session, and report
// queries against them using the shared mapping store. Schedules are not
// persisted; a restart forgets them but keeps the mappings.
package services
