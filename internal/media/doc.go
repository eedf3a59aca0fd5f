// Package media renders JPEG thumbnails for the sign clip library.
//
// Images are shrunk with libvips when it has been initialized ([InitVips])
// and with imaging otherwise. Videos are sampled with ffmpeg through a
// [FrameExtractor]. Results are cached on disk keyed by path, size and
// modification time, so replacing a clip invalidates its thumbnail.
package media
