// Package cmd implements the command-line interface for ingestly.
//
// This package provides the following commands:
//   - emails: Store Gmail messages from one sender
//   - news: Store a daily headline digest with a generated post
//   - version: Display version information
//
// Persistent flags select the config and dotenv files, the log level, and a
// dry-run mode that keeps every row in memory and prints it.
package cmd
