// Package main provides the entry point for the metanull CLI.
//
// metanull removes every piece of metadata from an image by rebuilding its
// pixels into a fresh buffer and re-encoding them. EXIF, GPS, thumbnails,
// ICC profiles and XMP never reach the output.
//
// Usage:
//
//	metanull inspect <image>
//	metanull sanitize <image>
//	metanull batch --output-dir clean/ <image>...
//
// See --help for all available options.
package main

// main is the entry point for metanull.
func main() {
	Execute()
}
