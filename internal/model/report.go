package model

import "time"

// SectionName names a group of metadata in a MetadataReport.
type SectionName string

const (
	// SectionDevice holds file and device level tags (EXIF IFD0).
	SectionDevice SectionName = "device"

	// SectionExif holds capture parameter tags (EXIF sub-IFD).
	SectionExif SectionName = "exif"

	// SectionGPS holds location tags (GPS IFD).
	SectionGPS SectionName = "gps"

	// SectionEmbedded lists embedded blobs such as thumbnails and colour
	// profiles by size only.
	SectionEmbedded SectionName = "embedded"
)

// SectionOrder is the fixed order in which sections are reported.
var SectionOrder = []SectionName{SectionDevice, SectionExif, SectionGPS, SectionEmbedded}

// Entry is one (tag, value) pair inside a section.
type Entry struct {
	// Tag is the human readable tag name.
	Tag string `json:"tag"`

	// Value is the formatted tag value.
	Value string `json:"value"`

	// Severity is the privacy impact of the tag.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`
}

// Section is one metadata group of a report.
//
// A section that is Available with no entries means the image carries no
// such metadata. A section that is not Available could not be parsed; its
// Diagnostic explains why.
type Section struct {
	Name       SectionName `json:"name"`
	Available  bool        `json:"available"`
	Diagnostic string      `json:"diagnostic,omitempty"`
	Entries    []Entry     `json:"entries"`
}

// Add appends an entry, classifying its severity by tag name.
func (s *Section) Add(tag, value string) {
	sev := TagSeverity(s.Name, tag)
	s.Entries = append(s.Entries, Entry{
		Tag:          tag,
		Value:        value,
		Severity:     sev,
		SeverityText: sev.String(),
	})
}

// MarkUnavailable records that the section could not be extracted.
// Entries collected before the failure are dropped.
func (s *Section) MarkUnavailable(diagnostic string) {
	s.Available = false
	s.Diagnostic = diagnostic
	s.Entries = nil
}

// IsEmpty reports whether the section is available and carries no entries.
func (s *Section) IsEmpty() bool {
	return s.Available && len(s.Entries) == 0
}

// Lookup returns the value of the first entry with the given tag.
func (s *Section) Lookup(tag string) (string, bool) {
	for _, e := range s.Entries {
		if e.Tag == tag {
			return e.Value, true
		}
	}
	return "", false
}

// FileInfo describes the inspected file on disk.
type FileInfo struct {
	// Name is the base name of the file.
	Name string `json:"name"`

	// Path is the path the file was opened from.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`
}

// ImageInfo describes the decoded image.
type ImageInfo struct {
	Format Format    `json:"format"`
	Mode   ColorMode `json:"mode"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// MetadataReport is the result of inspecting an image.
type MetadataReport struct {
	// File describes the file on disk. Zero when the report was built
	// from an in-memory buffer.
	File FileInfo `json:"file"`

	// Image holds the decoded image properties.
	Image ImageInfo `json:"image"`

	// Sections holds the metadata groups in SectionOrder.
	Sections []Section `json:"sections"`

	// InspectedAt is when the report was produced.
	InspectedAt time.Time `json:"inspected_at"`
}

// NewMetadataReport creates a report with every section available and empty.
func NewMetadataReport() *MetadataReport {
	sections := make([]Section, len(SectionOrder))
	for i, name := range SectionOrder {
		sections[i] = Section{Name: name, Available: true, Entries: []Entry{}}
	}
	return &MetadataReport{
		Sections:    sections,
		InspectedAt: time.Now(),
	}
}

// Section returns the named section, or nil if the name is unknown.
func (r *MetadataReport) Section(name SectionName) *Section {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i]
		}
	}
	return nil
}

// IsClean reports whether every section is available and empty.
// An unavailable section means the absence of metadata could not be
// confirmed, so the report is not clean.
func (r *MetadataReport) IsClean() bool {
	for i := range r.Sections {
		if !r.Sections[i].IsEmpty() {
			return false
		}
	}
	return true
}

// EntryCount returns the total number of entries over all sections.
func (r *MetadataReport) EntryCount() int {
	n := 0
	for i := range r.Sections {
		n += len(r.Sections[i].Entries)
	}
	return n
}

// DirtySections returns the names of sections that are not empty,
// including unavailable ones.
func (r *MetadataReport) DirtySections() []SectionName {
	var names []SectionName
	for i := range r.Sections {
		if !r.Sections[i].IsEmpty() {
			names = append(names, r.Sections[i].Name)
		}
	}
	return names
}
