// Package stages implements the production stage executors.
//
// The chain runs background preparation, speech synthesis, word alignment,
// subtitle rendering, and final composition, in that order. Media work is
// delegated to external tools (ffmpeg, ffprobe, the configured speech and
// alignment commands); each executor owns its command construction and writes
// its asset under the configured output directory, overwriting leftovers from
// a previous attempt so retries can restart from the top.
package stages
