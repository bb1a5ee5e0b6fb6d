// Package http provides HTTP handlers and middleware for the attendance API.
//
// The router exposes the following endpoints:
//   - GET /events, POST /events, GET /events/{id}, PUT /events/{id}/status:
//     event catalog endpoints exchanging the `eventDTO` payload defined in
//     event_handler.go. COMPLETED cannot be set through the status endpoint;
//     the lifecycle sweep assigns it when an event's end time passes.
//   - POST /events/{id}/registrations, DELETE /events/{id}/registrations/{userID}:
//     registration intake and cancellation. Intake resolves to CONFIRMED or
//     WAITLISTED before responding; cancellation of a confirmed registration
//     promotes the first waitlisted registrant in the same call.
//   - PUT /events/{id}/checkins/{userID}, DELETE /events/{id}/checkins/{userID}:
//     idempotent check-in and check-out for confirmed registrations.
//   - GET /attendance, GET /events/{id}/attendance: derived occupancy
//     aggregates, recomputed from the registration ledger.
//   - GET /attendance/stream, GET /events/{id}/attendance/stream: Server-Sent
//     Events feeds carrying the aggregate after each mutation.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
