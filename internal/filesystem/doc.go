// Package filesystem wraps the handful of filesystem calls the service makes
// against its media, work and output directories with retry logic for NFS
// stale file handle (ESTALE) errors.
//
// The sign media directory is commonly an NFS export shared between stations.
// A stale handle on the directory listing would otherwise abort a whole
// generation request, so StatWithRetry, OpenWithRetry and ReadDirWithRetry
// retry ESTALE with exponential backoff and return every other error
// immediately.
//
// Metrics are reported through an Observer registered with SetObserver; the
// volume label comes from a VolumeResolver built from the configured
// directories:
//
//	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
//	    "media":  cfg.MediaDir,
//	    "work":   cfg.WorkDir,
//	    "output": cfg.OutputDir,
//	}))
package filesystem
