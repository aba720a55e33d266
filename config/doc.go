// Package config loads the proxy configuration file.
//
// The file uses the traditional ELProxy.conf layout: one "Key = value"
// assignment per line, with "#" or ";" starting a comment and no section
// headers.
//
//	Password = PUBLIC
//	Port = 8100
//	CallsignsDenied = N0CALL.*
//
// Values follow git-config quoting rules, so a backslash in a regular
// expression must be written twice.
//
// After the file is read, environment variables prefixed with OPENELP_
// override individual keys, for example OPENELP_PASSWORD or OPENELP_PORT.
package config
