// Package metadata reads the date-bearing fields of a photo into a PhotoRecord.
//
// A record holds every candidate date found for one file: the EXIF capture,
// digitized and modify times, a date embedded in the filename, and the
// filesystem timestamps. Containers that cannot be parsed contribute no
// candidates; only a file that cannot be opened as an image fails the read.
package metadata
