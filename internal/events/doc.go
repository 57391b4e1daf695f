// Package events provides the outbound broadcast channel from the bridge
// into extension script contexts.
//
// Events are fire-and-forget: the bridge does not wait for delivery and a
// slow or dead script context never blocks dispatch. The WebSocket hub is
// the production transport; tests substitute an in-memory Broadcaster.
package events
