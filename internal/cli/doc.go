// Package cli implements the poscope command line: batch cleaning of POS
// exports, syllabus validation, calendar feature export and an offline
// forecast run. Commands share the server's configuration and loaders.
package cli
