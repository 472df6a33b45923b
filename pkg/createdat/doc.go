// Package createdat provides best-effort attribution of a media file's creation timestamp.
//
// The timestamp attribution follows a strict priority order: a date embedded
// in the filename, then the format's native metadata decoders, then the
// filesystem modification time.
package createdat
