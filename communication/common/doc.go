// Package common provides the pieces shared by the communication packages and the
// gsfclient command line tool.
//
// The package focuses on:
//   - Custom logging implementation integrated with Dragonboat's logger facade, so
//     every package logs through logger.GetLogger(name) with one consistent layout
//   - Configuration structures for the command line tool with a readable String()
//
// Key Components:
//
//   - CreateLogger / InitLoggers: install the "LEVEL | package | message" logger
//     factory and apply a level to all package loggers listed in LoggerNames.
//
//   - ClientConfig: settings of the connect command (connection string and
//     overrides, output options, log level).
//
//   - ListenerConfig: settings of the listen command, a framed test peer.
package common
