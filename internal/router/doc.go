// Package router implements the Message Dispatcher.
//
// The dispatcher decodes raw stream frames into a closed set of typed events
// and fans each event out to the listeners registered for its kind. It is
// driven synchronously by the Connection Manager's read loop, so events reach
// listeners in arrival order.
package router
