// Package logging provides a simple leveled logging interface for the
// announcement service and its command line tools.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (ffmpeg arguments, catalog contents)
//   - INFO: General operational messages
//   - WARN: Warning conditions (fallback clips, omitted tokens)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// DEBUG=true as a shortcut. Command line tools may override it with SetLevel.
package logging
