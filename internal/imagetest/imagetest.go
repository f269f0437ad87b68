// Package imagetest builds image files with known metadata for tests.
//
// Everything is assembled byte by byte so that tests do not depend on
// binary fixtures: EXIF blocks are big-endian TIFF structures, and the
// container helpers splice them into otherwise ordinary JPEG, PNG and
// WebP streams produced by the standard encoders.
package imagetest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"slices"
)

// TIFF field types.
const (
	TypeByte     uint16 = 1
	TypeASCII    uint16 = 2
	TypeShort    uint16 = 3
	TypeLong     uint16 = 4
	TypeRational uint16 = 5
)

// Entry is one IFD entry. Data holds the big-endian value bytes.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// ASCII builds a NUL terminated ASCII entry.
func ASCII(tag uint16, s string) Entry {
	data := append([]byte(s), 0)
	return Entry{Tag: tag, Type: TypeASCII, Count: uint32(len(data)), Data: data}
}

// Short builds a single SHORT entry.
func Short(tag, v uint16) Entry {
	return Entry{Tag: tag, Type: TypeShort, Count: 1, Data: binary.BigEndian.AppendUint16(nil, v)}
}

// Long builds a single LONG entry.
func Long(tag uint16, v uint32) Entry {
	return Entry{Tag: tag, Type: TypeLong, Count: 1, Data: binary.BigEndian.AppendUint32(nil, v)}
}

// Bytes builds a BYTE array entry.
func Bytes(tag uint16, b ...byte) Entry {
	return Entry{Tag: tag, Type: TypeByte, Count: uint32(len(b)), Data: b}
}

// Rationals builds a RATIONAL array entry from numerator/denominator pairs.
func Rationals(tag uint16, pairs ...uint32) Entry {
	var data []byte
	for _, v := range pairs {
		data = binary.BigEndian.AppendUint32(data, v)
	}
	return Entry{Tag: tag, Type: TypeRational, Count: uint32(len(pairs) / 2), Data: data}
}

// Exif describes an EXIF block to build.
type Exif struct {
	// Device entries go to IFD0.
	Device []Entry
	// Capture entries go to the Exif sub-IFD.
	Capture []Entry
	// GPS entries go to the GPS IFD.
	GPS []Entry
	// Thumbnail, when non-nil, is stored through IFD1.
	Thumbnail []byte
}

// SampleExif returns a block with camera, capture, GPS and thumbnail data.
func SampleExif() Exif {
	return Exif{
		Device: []Entry{
			ASCII(0x010F, "Canon"),
			ASCII(0x0110, "EOS 5D"),
			ASCII(0x0131, "Firmware 1.0"),
		},
		Capture: []Entry{
			Short(0x8827, 100),
			ASCII(0xA431, "0123456789"),
		},
		GPS: []Entry{
			Bytes(0x0000, 2, 3, 0, 0),
			ASCII(0x0001, "N"),
			Rationals(0x0002, 35, 1, 41, 1, 0, 1),
		},
		Thumbnail: JPEG(8, 8),
	}
}

func ifdSize(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.Data) > 4 {
			n += len(e.Data) + len(e.Data)%2
		}
	}
	return n
}

func writeIFD(buf *bytes.Buffer, entries []Entry, next uint32) {
	entries = slices.Clone(entries)
	slices.SortFunc(entries, func(a, b Entry) int { return int(a.Tag) - int(b.Tag) })

	dataOff := buf.Len() + 2 + 12*len(entries) + 4
	var data bytes.Buffer

	_ = binary.Write(buf, binary.BigEndian, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, binary.BigEndian, e.Tag)
		_ = binary.Write(buf, binary.BigEndian, e.Type)
		_ = binary.Write(buf, binary.BigEndian, e.Count)
		if len(e.Data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.Data)
			buf.Write(v)
			continue
		}
		_ = binary.Write(buf, binary.BigEndian, uint32(dataOff+data.Len()))
		data.Write(e.Data)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(buf, binary.BigEndian, next)
	buf.Write(data.Bytes())
}

// TIFF returns the block as a big-endian TIFF structure starting at the
// byte order mark.
func (x Exif) TIFF() []byte {
	ifd0 := slices.Clone(x.Device)
	if len(x.Capture) > 0 {
		ifd0 = append(ifd0, Long(0x8769, 0))
	}
	if len(x.GPS) > 0 {
		ifd0 = append(ifd0, Long(0x8825, 0))
	}
	var ifd1 []Entry
	if x.Thumbnail != nil {
		ifd1 = []Entry{Long(0x0201, 0), Long(0x0202, uint32(len(x.Thumbnail)))}
	}

	off0 := 8
	offExif := off0 + ifdSize(ifd0)
	offGPS := offExif + ifdSize(x.Capture)
	off1 := offGPS + ifdSize(x.GPS)
	offThumb := off1 + ifdSize(ifd1)

	for i := range ifd0 {
		switch ifd0[i].Tag {
		case 0x8769:
			ifd0[i] = Long(0x8769, uint32(offExif))
		case 0x8825:
			ifd0[i] = Long(0x8825, uint32(offGPS))
		}
	}
	if ifd1 != nil {
		ifd1[0] = Long(0x0201, uint32(offThumb))
	}

	var buf bytes.Buffer
	buf.WriteString("MM\x00\x2A")
	_ = binary.Write(&buf, binary.BigEndian, uint32(off0))

	next := uint32(0)
	if ifd1 != nil {
		next = uint32(off1)
	}
	writeIFD(&buf, ifd0, next)
	if len(x.Capture) > 0 {
		writeIFD(&buf, x.Capture, 0)
	}
	if len(x.GPS) > 0 {
		writeIFD(&buf, x.GPS, 0)
	}
	if ifd1 != nil {
		writeIFD(&buf, ifd1, 0)
		buf.Write(x.Thumbnail)
	}
	return buf.Bytes()
}

// IFD0Value returns the 4-byte value field of tag in the IFD0 of a
// big-endian TIFF built by Exif.TIFF, and its position in tiff.
func IFD0Value(tiff []byte, tag uint16) (value uint32, pos int, ok bool) {
	off := int(binary.BigEndian.Uint32(tiff[4:]))
	count := int(binary.BigEndian.Uint16(tiff[off:]))
	for i := range count {
		p := off + 2 + 12*i
		if binary.BigEndian.Uint16(tiff[p:]) == tag {
			return binary.BigEndian.Uint32(tiff[p+8:]), p + 8, true
		}
	}
	return 0, 0, false
}

// PutUint16At returns a copy of tiff with a big-endian uint16 written at pos.
func PutUint16At(tiff []byte, pos int, v uint16) []byte {
	out := bytes.Clone(tiff)
	binary.BigEndian.PutUint16(out[pos:], v)
	return out
}

// PutUint32At returns a copy of tiff with a big-endian uint32 written at pos.
func PutUint32At(tiff []byte, pos int, v uint32) []byte {
	out := bytes.Clone(tiff)
	binary.BigEndian.PutUint32(out[pos:], v)
	return out
}

// RGB returns an opaque test image with distinct pixel values.
func RGB(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 37), G: uint8(y * 59), B: uint8((x + y) * 11), A: 0xff})
		}
	}
	return img
}

// NRGBA returns a translucent test image.
func NRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 90, A: uint8(255 - (x+y)*10)})
		}
	}
	return img
}

// JPEG encodes a plain w×h JPEG with the standard encoder.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, RGB(w, h), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

// PNG encodes img as a plain PNG.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// Segment builds a JPEG marker segment.
func Segment(marker byte, payload []byte) []byte {
	n := len(payload) + 2
	return append([]byte{0xFF, marker, byte(n >> 8), byte(n)}, payload...)
}

// ExifSegment wraps a TIFF block into an APP1 Exif segment.
func ExifSegment(tiff []byte) []byte {
	return Segment(0xE1, append([]byte("Exif\x00\x00"), tiff...))
}

// ICCSegment builds a single-part APP2 ICC_PROFILE segment with size
// bytes of profile data.
func ICCSegment(size int) []byte {
	payload := append([]byte("ICC_PROFILE\x00\x01\x01"), make([]byte, size)...)
	return Segment(0xE2, payload)
}

// XMPSegment builds an APP1 XMP segment.
func XMPSegment(packet string) []byte {
	return Segment(0xE1, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...))
}

// CommentSegment builds a COM segment.
func CommentSegment(text string) []byte {
	return Segment(0xFE, []byte(text))
}

// InsertJPEGSegments places segments right after the SOI marker.
func InsertJPEGSegments(jpg []byte, segments ...[]byte) []byte {
	out := []byte{0xFF, 0xD8}
	for _, s := range segments {
		out = append(out, s...)
	}
	return append(out, jpg[2:]...)
}

// JPEGWithSampleMetadata returns a w×h JPEG carrying SampleExif, an ICC
// profile, an XMP packet and a comment.
func JPEGWithSampleMetadata(w, h int) []byte {
	return InsertJPEGSegments(JPEG(w, h),
		ExifSegment(SampleExif().TIFF()),
		ICCSegment(128),
		XMPSegment(`<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF/></x:xmpmeta>`),
		CommentSegment("shot by a known person"),
	)
}

// Chunk builds a PNG chunk with a valid CRC.
func Chunk(typ string, data []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	crc := crc32.ChecksumIEEE(append([]byte(typ), data...))
	return binary.BigEndian.AppendUint32(out, crc)
}

// InsertPNGChunks places chunks right after IHDR.
func InsertPNGChunks(p []byte, chunks ...[]byte) []byte {
	const afterIHDR = 8 + 8 + 13 + 4
	out := slices.Clone(p[:afterIHDR])
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, p[afterIHDR:]...)
}

// PNGWithSampleMetadata returns a PNG of img carrying an eXIf chunk with
// SampleExif, an iCCP chunk and a tEXt chunk.
func PNGWithSampleMetadata(img image.Image) []byte {
	return InsertPNGChunks(PNG(img),
		Chunk("eXIf", SampleExif().TIFF()),
		Chunk("iCCP", append([]byte("sRGB\x00\x00"), make([]byte, 40)...)),
		Chunk("tEXt", []byte("Author\x00someone")),
	)
}

// AppendRIFFChunk appends a chunk to a RIFF/WebP stream and fixes the
// RIFF size field.
func AppendRIFFChunk(riff []byte, typ string, data []byte) []byte {
	out := slices.Clone(riff)
	out = append(out, typ...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, data...)
	if len(data)%2 == 1 {
		out = append(out, 0)
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(out)-8))
	return out
}
