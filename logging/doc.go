// Package logging adapts zerolog to the authstate.Logger interface and
// provides an HTTP request logger for services that embed an Engine.
package logging
