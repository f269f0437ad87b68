package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"golang.org/x/text/encoding/unicode"

	"github.com/nao1215/metanull/internal/model"
)

// Tag IDs with special handling.
const (
	tagGPSVersionID    = 0x0000
	tagThumbnailOffset = 0x0201
	tagThumbnailLength = 0x0202
	tagXMLPacket       = 0x02BC
	tagIPTCNAA         = 0x83BB
	tagPhotoshop       = 0x8649
	tagICCProfile      = 0x8773
	tagMakerNote       = 0x927C
)

// blobTags are IFD0 tags that carry whole embedded documents. They are
// reported in the embedded section by size instead of by value.
var blobTags = map[uint16]string{
	tagXMLPacket:  model.XMPTag,
	tagIPTCNAA:    model.IPTCTag,
	tagPhotoshop:  model.IPTCTag,
	tagICCProfile: model.ICCProfileTag,
}

// layoutTags describe how the IFD0 image is stored. They are present in
// every TIFF and carry nothing about the author or the device.
var layoutTags = map[uint16]bool{
	0x0100: true, // ImageWidth
	0x0101: true, // ImageLength
	0x0102: true, // BitsPerSample
	0x0103: true, // Compression
	0x0106: true, // PhotometricInterpretation
	0x0111: true, // StripOffsets
	0x0115: true, // SamplesPerPixel
	0x0116: true, // RowsPerStrip
	0x0117: true, // StripByteCounts
	0x011A: true, // XResolution
	0x011B: true, // YResolution
	0x011C: true, // PlanarConfiguration
	0x0128: true, // ResolutionUnit
	0x013D: true, // Predictor
	0x0140: true, // ColorMap
	0x0142: true, // TileWidth
	0x0143: true, // TileLength
	0x0144: true, // TileOffsets
	0x0145: true, // TileByteCounts
	0x0152: true, // ExtraSamples
	0x0153: true, // SampleFormat
	0x0213: true, // YCbCrPositioning
}

// xpTags are Windows Explorer tags stored as UTF-16LE byte arrays.
var xpTags = map[uint16]bool{
	0x9C9B: true, // XPTitle
	0x9C9C: true, // XPComment
	0x9C9D: true, // XPAuthor
	0x9C9E: true, // XPKeywords
	0x9C9F: true, // XPSubject
}

// gpsTagNames resolves GPS IFD tag IDs. Tag 0 is special-cased in
// gpsTagName and never looked up here.
var gpsTagNames = map[uint16]string{
	0x01: "GPSLatitudeRef",
	0x02: "GPSLatitude",
	0x03: "GPSLongitudeRef",
	0x04: "GPSLongitude",
	0x05: "GPSAltitudeRef",
	0x06: "GPSAltitude",
	0x07: "GPSTimeStamp",
	0x08: "GPSSatellites",
	0x09: "GPSStatus",
	0x0A: "GPSMeasureMode",
	0x0B: "GPSDOP",
	0x0C: "GPSSpeedRef",
	0x0D: "GPSSpeed",
	0x0E: "GPSTrackRef",
	0x0F: "GPSTrack",
	0x10: "GPSImgDirectionRef",
	0x11: "GPSImgDirection",
	0x12: "GPSMapDatum",
	0x13: "GPSDestLatitudeRef",
	0x14: "GPSDestLatitude",
	0x15: "GPSDestLongitudeRef",
	0x16: "GPSDestLongitude",
	0x17: "GPSDestBearingRef",
	0x18: "GPSDestBearing",
	0x19: "GPSDestDistanceRef",
	0x1A: "GPSDestDistance",
	0x1B: "GPSProcessingMethod",
	0x1C: "GPSAreaInformation",
	0x1D: "GPSDateStamp",
	0x1E: "GPSDifferential",
	0x1F: "GPSHPositioningError",
}

// gpsTagName returns the label of a GPS tag.
func gpsTagName(id uint16, fallback string) string {
	if id == tagGPSVersionID {
		return "GPSVersionID"
	}
	if name, ok := gpsTagNames[id]; ok {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return fmt.Sprintf("GPSTag0x%04X", id)
}

// maxValueLen caps how much of a single value is copied into a report.
const maxValueLen = 256

// exifGroups holds the tags of each IFD, read independently so that a
// broken IFD only costs its own section.
type exifGroups struct {
	device    []exif.ExifTag
	capture   []exif.ExifTag
	gps       []exif.ExifTag
	thumbnail []exif.ExifTag

	deviceErr  error
	captureErr error
	gpsErr     error
	// thumbnailErr is reported inside the embedded section, not instead of it.
	thumbnailErr error
}

// Pointer tags in IFD0.
const (
	tagExifIFDPointer = 0x8769
	tagGPSIFDPointer  = 0x8825
	// tagDetached replaces pointer tags in the isolated IFD0 copy. It is
	// not a registered tag, so the enumerator skips the entry.
	tagDetached = 0xFFFF
)

const ifdEntrySize = 12

// ifdLayout is where the top-level IFDs of a TIFF payload live.
type ifdLayout struct {
	order    binary.ByteOrder
	ifd0     uint32
	exif     uint32
	gps      uint32
	ifd1     uint32
	isolated []byte
}

// locateIFDs reads IFD0 by hand and records the sub-IFD pointers. The
// returned isolated payload is a copy of raw whose IFD0 no longer links to
// any other IFD, so it can be enumerated on its own.
func locateIFDs(raw []byte) (*ifdLayout, error) {
	eh, err := exif.ParseExifHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("IFD0: %w", err)
	}
	l := &ifdLayout{order: eh.ByteOrder, ifd0: eh.FirstIfdOffset}

	start := int64(l.ifd0)
	if start+2 > int64(len(raw)) {
		return nil, fmt.Errorf("IFD0: offset 0x%08X outside payload (%d bytes)", l.ifd0, len(raw))
	}
	count := int64(l.order.Uint16(raw[start:]))
	end := start + 2 + count*ifdEntrySize
	if end+4 > int64(len(raw)) {
		return nil, fmt.Errorf("IFD0: %d entries overrun payload (%d bytes)", count, len(raw))
	}

	l.isolated = bytes.Clone(raw)
	for i := range count {
		pos := start + 2 + i*ifdEntrySize
		switch l.order.Uint16(raw[pos:]) {
		case tagExifIFDPointer:
			l.exif = l.order.Uint32(raw[pos+8:])
		case tagGPSIFDPointer:
			l.gps = l.order.Uint32(raw[pos+8:])
		default:
			continue
		}
		l.order.PutUint16(l.isolated[pos:], tagDetached)
	}
	l.ifd1 = l.order.Uint32(raw[end:])
	l.order.PutUint32(l.isolated[end:], 0)
	return l, nil
}

// readExif decodes every IFD of an EXIF payload on its own.
func readExif(raw []byte) exifGroups {
	var g exifGroups

	l, err := locateIFDs(raw)
	if err != nil {
		g.deviceErr, g.captureErr, g.gpsErr = err, err, err
		return g
	}

	var ifd0 []exif.ExifTag
	ifd0, g.deviceErr = scanIFD("IFD0", l.isolated, l.order, exifcommon.IfdStandardIfdIdentity, l.ifd0)
	for _, e := range ifd0 {
		// TIFF files without IFD1 can still carry these in IFD0.
		if e.TagId == tagThumbnailOffset || e.TagId == tagThumbnailLength {
			g.thumbnail = append(g.thumbnail, e)
			continue
		}
		if !layoutTags[e.TagId] {
			g.device = append(g.device, e)
		}
	}

	if l.exif != 0 {
		g.capture, g.captureErr = scanIFD("Exif IFD", raw, l.order, exifcommon.IfdExifStandardIfdIdentity, l.exif)
	}
	if l.gps != 0 {
		g.gps, g.gpsErr = scanIFD("GPS IFD", raw, l.order, exifcommon.IfdGpsInfoStandardIfdIdentity, l.gps)
	}
	if l.ifd1 != 0 {
		var ifd1 []exif.ExifTag
		ifd1, g.thumbnailErr = scanIFD("IFD1", raw, l.order, exifcommon.IfdStandardIfdIdentity, l.ifd1)
		g.thumbnail = append(g.thumbnail, ifd1...)
	}
	return g
}

// scanIFD enumerates the IFD at offset, and any IFD below it, as group.
// Errors and parser panics are reported with the group name.
func scanIFD(group string, data []byte, order binary.ByteOrder, ii *exifcommon.IfdIdentity, offset uint32) (tags []exif.ExifTag, err error) {
	defer func() {
		if r := recover(); r != nil {
			tags, err = nil, fmt.Errorf("%s: parser panic: %v", group, r)
		}
	}()

	// The enumerator stops silently at an unreachable offset.
	if int64(offset)+2 > int64(len(data)) {
		return nil, fmt.Errorf("%s: offset 0x%08X outside payload (%d bytes)", group, offset, len(data))
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", group, err)
	}
	ie := exif.NewIfdEnumerate(im, exif.NewTagIndex(), exif.NewExifReadSeekerWithBytes(data), order)

	visitor := func(ite *exif.IfdTagEntry) error {
		if ite.ChildIfdPath() != "" {
			// IFD pointer tags are structure, not content.
			return nil
		}
		raw, err := ite.GetRawBytes()
		if err != nil {
			return nil
		}
		tag := exif.ExifTag{
			IfdPath:      ite.IfdPath(),
			TagId:        ite.TagId(),
			TagName:      ite.TagName(),
			UnitCount:    ite.UnitCount(),
			TagTypeId:    ite.TagType(),
			TagTypeName:  ite.TagType().String(),
			ValueBytes:   raw,
			ChildIfdPath: ite.ChildIfdPath(),
		}
		if v, err := ite.Value(); err == nil {
			tag.Value = v
			if s, err := ite.Format(); err == nil {
				tag.Formatted = s
			}
		}
		if tag.Formatted == "" && tag.Value == nil {
			tag.Formatted = sizeString(len(raw))
		}
		tags = append(tags, tag)
		return nil
	}

	if _, err := ie.Scan(ii, offset, visitor, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", group, err)
	}
	return tags, nil
}

// formatValue renders a tag value for display.
func formatValue(e exif.ExifTag) string {
	if xpTags[e.TagId] {
		if s, ok := decodeXP(e); ok {
			return s
		}
	}
	if e.TagId == tagMakerNote {
		return sizeString(len(e.ValueBytes))
	}

	v := strings.TrimSpace(e.Formatted)
	if v == "" && e.Value != nil {
		v = fmt.Sprintf("%v", e.Value)
	}
	if len(v) > maxValueLen {
		v = truncateUTF8(v, maxValueLen) + "…"
	}
	return v
}

// decodeXP decodes a UTF-16LE XP* tag.
func decodeXP(e exif.ExifTag) (string, bool) {
	raw, ok := e.Value.([]byte)
	if !ok {
		raw = e.ValueBytes
	}
	if len(raw) == 0 {
		return "", false
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(bytes.TrimRight(out, "\x00")), true
}

func truncateUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// thumbnailLength extracts JPEGInterchangeFormatLength from IFD1.
func thumbnailLength(entries []exif.ExifTag) (int, bool) {
	for _, e := range entries {
		if e.TagId != tagThumbnailLength {
			continue
		}
		switch v := e.Value.(type) {
		case []uint32:
			if len(v) > 0 {
				return int(v[0]), true
			}
		case []uint16:
			if len(v) > 0 {
				return int(v[0]), true
			}
		}
	}
	return 0, false
}
