package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/nao1215/metanull/internal/model"
)

// blob is an embedded block found in the container, reported by size.
type blob struct {
	tag   string
	value string
}

// container holds what the structural walk of a file found.
type container struct {
	// exif is the raw TIFF-structured EXIF payload, starting at the
	// byte order mark. Nil when the file has none.
	exif []byte

	// blobs lists embedded blocks in file order.
	blobs []blob
}

func (c *container) addBlob(tag string, size int) {
	c.blobs = append(c.blobs, blob{tag: tag, value: sizeString(size)})
}

func (c *container) addNamedBlob(tag, name string, size int) {
	c.blobs = append(c.blobs, blob{tag: tag, value: fmt.Sprintf("%s (%s)", name, sizeString(size))})
}

func sizeString(n int) string {
	return fmt.Sprintf("%d bytes", n)
}

var (
	exifHeader      = []byte("Exif\x00\x00")
	xmpHeader       = []byte("http://ns.adobe.com/xap/1.0/\x00")
	xmpExtHeader    = []byte("http://ns.adobe.com/xmp/extension/\x00")
	iccHeader       = []byte("ICC_PROFILE\x00")
	photoshopHeader = []byte("Photoshop 3.0\x00")
	jfifHeader      = []byte("JFIF\x00")
	jfxxHeader      = []byte("JFXX\x00")
	adobeHeader     = []byte("Adobe")
)

// scanContainer walks the container structure without decoding pixels.
func scanContainer(format model.Format, data []byte) (*container, error) {
	switch format {
	case model.FormatJPEG:
		return scanJPEG(data)
	case model.FormatPNG:
		return scanPNG(data)
	case model.FormatWebP:
		return scanWebP(data)
	case model.FormatTIFF:
		return &container{exif: data}, nil
	case model.FormatBMP:
		return scanBMP(data)
	default:
		return &container{}, nil
	}
}

// scanJPEG walks the marker segments up to the first scan.
func scanJPEG(data []byte) (*container, error) {
	c := &container{}
	var icc int
	i := 2
	for i+1 < len(data) {
		if data[i] != 0xFF {
			return c, fmt.Errorf("jpeg: expected marker at offset %d", i)
		}
		marker := data[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		if i+3 >= len(data) {
			return c, fmt.Errorf("jpeg: truncated segment header at offset %d", i)
		}
		length := int(binary.BigEndian.Uint16(data[i+2:]))
		end := i + 2 + length
		if length < 2 || end > len(data) {
			return c, fmt.Errorf("jpeg: truncated segment 0x%02X at offset %d", marker, i)
		}
		payload := data[i+4 : end]

		switch {
		case marker == 0xE0 && bytes.HasPrefix(payload, jfifHeader):
			// Density is not metadata; an inline thumbnail is.
			if len(payload) >= 14 {
				if w, h := int(payload[12]), int(payload[13]); w*h > 0 {
					c.addBlob(model.ThumbnailTag, 3*w*h)
				}
			}
		case marker == 0xE0 && bytes.HasPrefix(payload, jfxxHeader):
			c.addBlob(model.ThumbnailTag, len(payload)-len(jfxxHeader)-1)
		case marker == 0xE1 && bytes.HasPrefix(payload, exifHeader):
			if c.exif == nil {
				c.exif = payload[len(exifHeader):]
			}
		case marker == 0xE1 && bytes.HasPrefix(payload, xmpHeader):
			c.addBlob(model.XMPTag, len(payload)-len(xmpHeader))
		case marker == 0xE1 && bytes.HasPrefix(payload, xmpExtHeader):
			c.addNamedBlob(model.XMPTag, "extended", len(payload)-len(xmpExtHeader))
		case marker == 0xE2 && bytes.HasPrefix(payload, iccHeader):
			// ICC profiles may be split over several APP2 segments, each
			// with a two byte sequence header after the signature.
			if n := len(payload) - len(iccHeader) - 2; n > 0 {
				icc += n
			}
		case marker == 0xED && bytes.HasPrefix(payload, photoshopHeader):
			c.addBlob(model.IPTCTag, len(payload)-len(photoshopHeader))
		case marker == 0xEE && bytes.HasPrefix(payload, adobeHeader):
			// Colour transform flags only.
		case marker >= 0xE0 && marker <= 0xEF:
			c.addBlob(fmt.Sprintf("APP%d", marker-0xE0), len(payload))
		case marker == 0xFE:
			c.addBlob(model.CommentTag, len(payload))
		}
		i = end
	}
	if icc > 0 {
		c.addBlob(model.ICCProfileTag, icc)
	}
	return c, nil
}

// pngCriticalOrRendering are chunks that only describe how to render the
// pixels. Every other chunk is reported.
var pngCriticalOrRendering = map[string]bool{
	"IHDR": true, "PLTE": true, "IDAT": true, "IEND": true,
	"tRNS": true, "gAMA": true, "cHRM": true, "sRGB": true,
	"sBIT": true, "bKGD": true, "hIST": true, "pHYs": true,
	"sPLT": true, "cICP": true, "mDCV": true, "cLLI": true,
	"acTL": true, "fcTL": true, "fdAT": true,
}

// scanPNG walks the PNG chunk list.
func scanPNG(data []byte) (*container, error) {
	c := &container{}
	i := 8
	for i+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[i:]))
		typ := string(data[i+4 : i+8])
		end := i + 8 + length + 4
		if length < 0 || end > len(data) {
			return c, fmt.Errorf("png: truncated %q chunk at offset %d", typ, i)
		}
		body := data[i+8 : i+8+length]

		switch typ {
		case "eXIf":
			if c.exif == nil {
				c.exif = bytes.TrimPrefix(body, exifHeader)
			}
		case "iCCP":
			c.addBlob(model.ICCProfileTag, length)
		case "tEXt", "zTXt", "iTXt":
			keyword, _, _ := bytes.Cut(body, []byte{0})
			if typ == "iTXt" && string(keyword) == "XML:com.adobe.xmp" {
				c.addBlob(model.XMPTag, length)
				break
			}
			c.addNamedBlob(model.TextChunkTag, string(keyword), length)
		case "tIME":
			c.addBlob("ModificationTime", length)
		default:
			if !pngCriticalOrRendering[typ] {
				c.addBlob("Chunk:"+typ, length)
			}
		}
		if typ == "IEND" {
			break
		}
		i = end
	}
	return c, nil
}

// webpStructural are chunks that carry image data or layout.
var webpStructural = map[string]bool{
	"VP8 ": true, "VP8L": true, "VP8X": true, "ALPH": true,
	"ANIM": true, "ANMF": true,
}

// scanWebP walks the RIFF chunk list.
func scanWebP(data []byte) (*container, error) {
	c := &container{}
	i := 12
	for i+8 <= len(data) {
		typ := string(data[i : i+4])
		length := int(binary.LittleEndian.Uint32(data[i+4:]))
		end := i + 8 + length
		if length < 0 || end > len(data) {
			return c, fmt.Errorf("webp: truncated %q chunk at offset %d", typ, i)
		}
		body := data[i+8 : end]

		switch typ {
		case "EXIF":
			if c.exif == nil {
				c.exif = bytes.TrimPrefix(body, exifHeader)
			}
		case "ICCP":
			c.addBlob(model.ICCProfileTag, length)
		case "XMP ":
			c.addBlob(model.XMPTag, length)
		default:
			if !webpStructural[typ] {
				c.addBlob("Chunk:"+typ, length)
			}
		}
		// Chunks are padded to even sizes.
		i = end + length%2
	}
	return c, nil
}

// scanBMP reports an embedded ICC profile in a BITMAPV5HEADER.
func scanBMP(data []byte) (*container, error) {
	c := &container{}
	const (
		fileHeaderSize = 14
		v5HeaderSize   = 124
		profileEmbed   = 0x4D424544 // "MBED"
	)
	if len(data) < fileHeaderSize+v5HeaderSize {
		return c, nil
	}
	if binary.LittleEndian.Uint32(data[fileHeaderSize:]) != v5HeaderSize {
		return c, nil
	}
	if binary.LittleEndian.Uint32(data[fileHeaderSize+56:]) != profileEmbed {
		return c, nil
	}
	size := binary.LittleEndian.Uint32(data[fileHeaderSize+116:])
	if size > 0 {
		c.addBlob(model.ICCProfileTag, int(size))
	}
	return c, nil
}
