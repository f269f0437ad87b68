package model

// Severity represents how much a metadata entry reveals about the person
// or device behind an image.
type Severity int

const (
	// SeverityInfo indicates technical data with no identifying value on its own.
	// Examples: orientation, pixel dimensions, colour space.
	SeverityInfo Severity = iota

	// SeverityLow indicates data that narrows down a workflow.
	// Examples: exposure settings, ICC profile presence, software name.
	SeverityLow

	// SeverityMedium indicates data that helps correlate images with each other.
	// Examples: camera make and model, capture dates, embedded thumbnails.
	SeverityMedium

	// SeverityHigh indicates data that points at a specific device or person.
	// Examples: serial numbers, owner name, artist, unique image IDs.
	SeverityHigh

	// SeverityCritical indicates data that reveals a physical location.
	// Examples: GPS coordinates.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// TagInfo describes the privacy impact of a metadata tag.
type TagInfo struct {
	Severity Severity
	Impact   string
}

// tagInfoMapping maps tag names to their privacy impact.
// Tags not listed here fall back to a per-section default in TagSeverity.
var tagInfoMapping = map[string]TagInfo{
	// CRITICAL - physical location
	"GPSLatitude": {
		Severity: SeverityCritical,
		Impact:   "Latitude of the capture location.",
	},
	"GPSLongitude": {
		Severity: SeverityCritical,
		Impact:   "Longitude of the capture location.",
	},
	"GPSAltitude": {
		Severity: SeverityCritical,
		Impact:   "Altitude of the capture location; narrows down floors and terrain.",
	},
	"GPSDestLatitude": {
		Severity: SeverityCritical,
		Impact:   "Latitude of the photographed destination.",
	},
	"GPSDestLongitude": {
		Severity: SeverityCritical,
		Impact:   "Longitude of the photographed destination.",
	},

	// HIGH - device or person identity
	"BodySerialNumber": {
		Severity: SeverityHigh,
		Impact:   "Camera body serial number links every image taken with the device.",
	},
	"LensSerialNumber": {
		Severity: SeverityHigh,
		Impact:   "Lens serial number links images taken with the same lens.",
	},
	"CameraOwnerName": {
		Severity: SeverityHigh,
		Impact:   "Name of the camera owner.",
	},
	"Artist": {
		Severity: SeverityHigh,
		Impact:   "Name of the photographer.",
	},
	"XPAuthor": {
		Severity: SeverityHigh,
		Impact:   "Author name written by Windows Explorer.",
	},
	"Copyright": {
		Severity: SeverityHigh,
		Impact:   "Copyright holder, usually a person or organisation name.",
	},
	"ImageUniqueID": {
		Severity: SeverityHigh,
		Impact:   "Unique identifier that can match copies of the same image.",
	},
	"HostComputer": {
		Severity: SeverityHigh,
		Impact:   "Name of the computer used to edit the image.",
	},
	"GPSTimeStamp": {
		Severity: SeverityHigh,
		Impact:   "Satellite time of capture.",
	},
	"GPSDateStamp": {
		Severity: SeverityHigh,
		Impact:   "Satellite date of capture.",
	},

	// MEDIUM - correlation
	"Make": {
		Severity: SeverityMedium,
		Impact:   "Camera manufacturer.",
	},
	"Model": {
		Severity: SeverityMedium,
		Impact:   "Camera model.",
	},
	"LensModel": {
		Severity: SeverityMedium,
		Impact:   "Lens model.",
	},
	"DateTime": {
		Severity: SeverityMedium,
		Impact:   "Last modification time recorded by the editing software.",
	},
	"DateTimeOriginal": {
		Severity: SeverityMedium,
		Impact:   "Capture time.",
	},
	"DateTimeDigitized": {
		Severity: SeverityMedium,
		Impact:   "Digitisation time.",
	},
	"XPComment": {
		Severity: SeverityMedium,
		Impact:   "Free-form comment written by Windows Explorer.",
	},
	"ImageDescription": {
		Severity: SeverityMedium,
		Impact:   "Free-form description.",
	},
	ThumbnailTag: {
		Severity: SeverityMedium,
		Impact:   "Embedded preview that may show the image before cropping or redaction.",
	},
	XMPTag: {
		Severity: SeverityMedium,
		Impact:   "XMP packet; frequently carries editing history and document IDs.",
	},
	IPTCTag: {
		Severity: SeverityMedium,
		Impact:   "IPTC/Photoshop block; frequently carries captions, bylines and locations.",
	},
	TextChunkTag: {
		Severity: SeverityMedium,
		Impact:   "Textual chunk written by the producing software.",
	},
	CommentTag: {
		Severity: SeverityMedium,
		Impact:   "Comment segment written by the producing software.",
	},

	// LOW - workflow hints
	"Software": {
		Severity: SeverityLow,
		Impact:   "Software used to produce the image.",
	},
	ICCProfileTag: {
		Severity: SeverityLow,
		Impact:   "Colour profile; a custom profile can identify a calibrated workstation.",
	},
}

// Embedded block labels used in the embedded section.
const (
	ThumbnailTag  = "Thumbnail"
	ICCProfileTag = "ICCProfile"
	XMPTag        = "XMP"
	IPTCTag       = "IPTC"
	TextChunkTag  = "TextChunk"
	CommentTag    = "Comment"
)

// sectionDefaultSeverity is used for tags missing from tagInfoMapping.
var sectionDefaultSeverity = map[SectionName]Severity{
	SectionDevice:   SeverityInfo,
	SectionExif:     SeverityLow,
	SectionGPS:      SeverityHigh,
	SectionEmbedded: SeverityMedium,
}

// TagSeverity returns the severity of a tag found in the given section.
func TagSeverity(section SectionName, tag string) Severity {
	if info, ok := tagInfoMapping[tag]; ok {
		return info.Severity
	}
	if sev, ok := sectionDefaultSeverity[section]; ok {
		return sev
	}
	return SeverityInfo
}

// GetTagInfo returns the full impact information for a tag.
// Returns a default TagInfo with SeverityInfo if the tag is not in the mapping.
func GetTagInfo(tag string) TagInfo {
	if info, ok := tagInfoMapping[tag]; ok {
		return info
	}
	return TagInfo{
		Severity: SeverityInfo,
		Impact:   "No specific impact recorded for this tag. Review manually.",
	}
}
