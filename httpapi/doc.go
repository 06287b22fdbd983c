// Package httpapi exposes the mailbox engine over HTTP.
//
// POST /messages stores a message; GET /messages polls for the next visible
// one, identified by the organization query parameter or header, an optional
// notificationType filter and a consumer identity taken from the client-id
// header (falling back to X-Forwarded-For and the remote address).
//
// Status mapping: validation failures return 400, an empty poll returns 404,
// a storage failure on submit returns 507 Insufficient Storage.
package httpapi
