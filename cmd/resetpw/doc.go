// Command resetpw manages the operator password of the ISL announcer
// without going through the web interface.
//
// Usage:
//
//	resetpw <command>
//
// Commands:
//
//	reset   Prompt for a new password and replace the current one. Every
//	        session is ended. A password must already have been set up
//	        in the web interface.
//
//	status  Report whether a password is configured.
//
//	logout  End every session, signing out all browsers.
//
// Environment:
//
//	DATABASE_DIR - directory holding announcer.db (default: /database)
package main
