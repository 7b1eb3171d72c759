// Package server assembles the HTTP surface: the WebSocket relay endpoint,
// the REST read API for conversation lists and history, health, and metrics.
// Everything hangs off one chi router behind shared middleware; the WebSocket
// handler authenticates after the upgrade so a bad credential surfaces as a
// policy-violation close frame rather than an HTTP status.
package server
