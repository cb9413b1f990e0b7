// Package cmd implements the gsfclient command-line interface. It drives the
// transport client of this module against real sockets.
//
// The package is organized into several subpackages:
//
//   - connect: Connects a client built from a connection string, sends stdin and prints received data
//   - listen: A small TCP peer that prints (and optionally echoes) what clients send
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through a GSF_ prefixed environment variable, e.g.
// GSF_CONNECTION_STRING. Values are additionally read from .env and .env.local.
//
// See gsfclient -help for a list of all commands.
package cmd
