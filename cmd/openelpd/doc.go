// Package main provides openelpd, the EchoLink proxy daemon.
//
// Usage:
//
//	openelpd [-F] [-L <log path>] [-S] [--help] [<config path>]
//
// The configuration path defaults to ELProxy.conf in the working directory.
// Log records go to the console until the proxy is open, then to the file
// named by -L or to syslog with -S. The daemon always stays attached to its
// terminal; -F is accepted for compatibility with existing service files.
//
// SIGINT and SIGTERM stop the daemon gracefully. The exit status is zero on a
// clean shutdown and the negated errno of the failure otherwise.
package main
