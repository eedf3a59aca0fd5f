// Package retention removes expired announcements together with their
// uploaded audio and generated video, and prunes expired login sessions.
//
// A Sweeper runs once at startup and then on a fixed interval derived from
// the configured retention period. A zero retention keeps announcements
// forever; sessions are still pruned.
package retention
