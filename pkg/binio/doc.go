// Package binio provides the seekable binary cursor shared by all of the
// media metadata decoders.
//
// A Reader wraps a random-access byte source with a switchable byte order and
// stackable position bookmarks, so container decoders can follow offsets into
// nested structures and return to exactly where they left off.
package binio
