// Package database provides SQLite storage for the announcement service.
//
// It handles storage and retrieval of:
//   - The operator account and authentication sessions
//   - Announcements (uploaded audio, transcript, generation status)
//   - Key/value metadata
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization.
package database
