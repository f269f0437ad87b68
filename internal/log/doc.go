// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// A tool that removes location and identity data from images must not
// leak the same data into its own logs. The SecureHandler masks:
//   - Location attributes (gps, latitude, longitude, coordinates)
//   - Device identity (serial numbers, maker notes)
//   - Authorship (owner, artist, author, copyright)
//   - Perturbed pixel positions
//   - Values that look like coordinates or serial numbers, whatever the key
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("tag read", "GPSLatitude", "[35/1 41/1 22/1]") // masked
//	slog.SetDefault(logger)
package log
