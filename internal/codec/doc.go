// Package codec decodes the supported image containers and encodes pixel
// handles into JPEG, WebP or PNG.
//
// Decoding covers JPEG, PNG, TIFF, BMP and WebP. The decoder is picked by
// signature, never by file extension.
//
// Encoding always starts from a pixel.Handle, so the encoders never see
// the source container. JPEG output is post-processed so that its only
// application segment is a JFIF header with a 72 dpi density; WebP is
// written with the maximum encoder effort; PNG with the best compression.
package codec
