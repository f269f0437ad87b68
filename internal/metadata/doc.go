// Package metadata reports the identifying metadata carried by an image
// file without decoding its pixels.
//
// The report has four sections:
//   - device: camera and software identification from IFD0
//   - exif: capture settings from the Exif sub-IFD
//   - gps: location data from the GPS IFD
//   - embedded: thumbnails, ICC profiles, XMP, IPTC, comments and other
//     blocks found in the container, reported by size
//
// Each section is extracted independently. A section that cannot be read
// is marked unavailable with a diagnostic while the others are still
// reported.
package metadata
