// Package pixel holds decoded images as bare pixel buffers.
//
// Rebuild copies the pixel values of any image.Image into a fresh Handle.
// Because a Handle has no place for ancillary data, anything built from it
// carries no EXIF, GPS, ICC, thumbnail, XMP or IPTC bytes, whatever the
// target format. Perturb applies the optional anti-forensic alteration and
// Convert performs caller-requested layout changes.
package pixel
