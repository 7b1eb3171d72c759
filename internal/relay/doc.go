// Package relay runs the per-connection message loop. A Session owns one
// authenticated connection from registration through close: it decodes inbound
// frames, persists each message through the conversation service before any
// delivery, then hands the stored record to the registry for best-effort
// push to the recipient and echoes it to the sender.
//
// Frame-level failures (bad JSON, unknown recipient, empty body, a store
// error) are reported only to the sender and leave the session running.
// Transport failures end the session, which releases its registry slot on the
// way out.
package relay
