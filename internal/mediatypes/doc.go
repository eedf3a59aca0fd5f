// Package mediatypes holds the file extension policy shared by the catalog,
// the compositor, the upload handlers and the library browser.
//
// It has no dependencies beyond the standard library so every other package
// can import it without creating import cycles.
//
// # Token resolution
//
// ResolveExtensions is ordered. A token "train" is looked up as train.mp4,
// then train.png, train.jpg and train.jpeg; the first one present wins:
//
//	for _, ext := range mediatypes.ResolveExtensions {
//	    if name, ok := cat.Lookup(part + ext); ok {
//	        // use name
//	    }
//	}
//
// DefaultAssetName names the clip used when no extension matches.
//
// # Uploads and library
//
// AudioExtensions lists the accepted announcement recordings (wav, mp3, m4a).
// LibraryExtensions lists what the sign library browser shows.
package mediatypes
