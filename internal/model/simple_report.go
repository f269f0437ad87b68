package model

// Summary is a severity roll-up of a MetadataReport.
// It is what the text and Markdown writers print above the per-section
// tables, and what the MCP inspect tool returns to agents.
type Summary struct {
	// === Severity Summary ===

	// CriticalCount is the number of critical entries.
	CriticalCount int `json:"critical_count"`

	// HighCount is the number of high severity entries.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity entries.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity entries.
	LowCount int `json:"low_count"`

	// InfoCount is the number of informational entries.
	InfoCount int `json:"info_count"`

	// === Sections ===

	// PopulatedSections lists sections that carry at least one entry.
	PopulatedSections []SectionName `json:"populated_sections,omitempty"`

	// UnavailableSections lists sections that could not be extracted.
	UnavailableSections []SectionName `json:"unavailable_sections,omitempty"`

	// Clean is true when every section is available and empty.
	Clean bool `json:"clean"`
}

// NewSummary builds a Summary from a MetadataReport.
func NewSummary(report *MetadataReport) *Summary {
	s := &Summary{Clean: report.IsClean()}

	for i := range report.Sections {
		sec := &report.Sections[i]
		if !sec.Available {
			s.UnavailableSections = append(s.UnavailableSections, sec.Name)
			continue
		}
		if len(sec.Entries) > 0 {
			s.PopulatedSections = append(s.PopulatedSections, sec.Name)
		}
		for _, e := range sec.Entries {
			s.count(e.Severity)
		}
	}

	return s
}

func (s *Summary) count(sev Severity) {
	switch sev {
	case SeverityCritical:
		s.CriticalCount++
	case SeverityHigh:
		s.HighCount++
	case SeverityMedium:
		s.MediumCount++
	case SeverityLow:
		s.LowCount++
	default:
		s.InfoCount++
	}
}

// TotalEntries returns the total number of counted entries.
func (s *Summary) TotalEntries() int {
	return s.CriticalCount + s.HighCount + s.MediumCount + s.LowCount + s.InfoCount
}

// HighestSeverity returns the most severe level present, and false if
// there are no entries.
func (s *Summary) HighestSeverity() (Severity, bool) {
	switch {
	case s.CriticalCount > 0:
		return SeverityCritical, true
	case s.HighCount > 0:
		return SeverityHigh, true
	case s.MediumCount > 0:
		return SeverityMedium, true
	case s.LowCount > 0:
		return SeverityLow, true
	case s.InfoCount > 0:
		return SeverityInfo, true
	default:
		return SeverityInfo, false
	}
}
