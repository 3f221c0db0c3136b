// Package efem implements the data model and engine plumbing for the
// line-oriented EFEM command protocol.
//
// It provides the wire message model (Command, Message, Response, Event),
// the frame grammar (# / #@ prefix, $ terminator, comma-separated fields),
// the link state manager, the task manager that owns the engine goroutines,
// and the Notifier interface through which the surrounding application
// (GUI or test driver) observes the engine.
//
// The TCP transport and request/response correlation built on top of this
// package live in the efemlink package; the scripted sequence runner and
// the automated transfer flows live in the flow package.
package efem
