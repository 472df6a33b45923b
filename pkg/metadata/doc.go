// Package metadata extracts an authoritative creation timestamp from media
// files by decoding their native binary metadata.
//
// Five structurally parallel decoders (RIFF/AVI, JPEG, TIFF/EXIF, PNG and
// ISO-BMFF for MP4/QuickTime/HEIC) walk their container's nested framing over
// a shared binio cursor. JPEG and ISO-BMFF delegate embedded EXIF blobs to
// the TIFF decoder. Timestamps are naive wall-clock values constructed in UTC;
// no timezone information is decoded.
package metadata
