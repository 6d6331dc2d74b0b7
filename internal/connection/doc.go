// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns one persistent WebSocket connection to the parking backend
//   - Replays every gate subscription after each successful (re)connect
//   - Reconnects on unexpected closure with bounded exponential backoff
//   - Hands inbound frames, in arrival order, to the Message Dispatcher
package connection
