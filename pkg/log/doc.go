// Package log provides the logging abstraction shared by all repovault
// components.
//
// Components take a Logger and attach typed Fields to each message. The
// zerolog adapter is the production implementation:
//
//	logger := log.NewZerologAdapterWithLogger(zl)
//
// Tests and nil-logger guards use the no-op implementation:
//
//	logger := log.NewNoopLogger()
package log
