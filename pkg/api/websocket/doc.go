// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/outcomes/ws?account_id=... to
// receive job outcomes and decision announcements as they happen.
package websocket
