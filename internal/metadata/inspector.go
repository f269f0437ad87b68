package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/metanull/internal/codec"
	"github.com/nao1215/metanull/internal/model"
)

// Inspector extracts a MetadataReport from image files.
// It never decodes pixel data and never modifies its input.
type Inspector struct {
	logger *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets a custom logger for the inspector.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// NewInspector creates a new Inspector.
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// Inspect reads the file at path and reports its metadata.
//
// Errors: model.ErrNotFound when the path does not exist, model.ErrDecode
// (or model.ErrNotAnImage) when the container cannot be opened. Missing
// metadata is an empty report, never an error.
func (i *Inspector) Inspect(path string) (*model.MetadataReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrNotAnImage, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, err)
	}

	report, err := i.Extract(data)
	if err != nil {
		return nil, err
	}
	report.File = model.FileInfo{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	return report, nil
}

// Extract reports the metadata of an in-memory image.
func (i *Inspector) Extract(data []byte) (*model.MetadataReport, error) {
	cfg, format, err := codec.DecodeConfig(data)
	if err != nil {
		return nil, err
	}

	report := model.NewMetadataReport()
	report.InspectedAt = time.Now()
	report.Image = model.ImageInfo{
		Format: format,
		Mode:   codec.ModeFromColorModel(cfg.ColorModel),
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	c, scanErr := scanContainer(format, data)
	if scanErr != nil {
		// The header decoded, so whatever the walk found is still reported.
		i.logger.Debug("container walk stopped early", "format", format, "error", scanErr)
	}

	var groups exifGroups
	if c != nil && len(c.exif) > 0 {
		groups = readExif(c.exif)
	}

	buildSection(report.Section(model.SectionDevice), groups.deviceErr, func(s *model.Section) {
		for _, e := range groups.device {
			if _, ok := blobTags[e.TagId]; ok {
				continue
			}
			s.Add(e.TagName, formatValue(e))
		}
	})
	buildSection(report.Section(model.SectionExif), groups.captureErr, func(s *model.Section) {
		for _, e := range groups.capture {
			s.Add(e.TagName, formatValue(e))
		}
	})
	buildSection(report.Section(model.SectionGPS), groups.gpsErr, func(s *model.Section) {
		for _, e := range groups.gps {
			s.Add(gpsTagName(e.TagId, e.TagName), formatValue(e))
		}
	})
	buildSection(report.Section(model.SectionEmbedded), scanErr, func(s *model.Section) {
		if n, ok := thumbnailLength(groups.thumbnail); ok && n > 0 {
			s.Add(model.ThumbnailTag, sizeString(n))
		} else if groups.thumbnailErr != nil {
			s.Add(model.ThumbnailTag, "present (IFD1 unreadable)")
		}
		for _, e := range groups.device {
			if tag, ok := blobTags[e.TagId]; ok {
				s.Add(tag, sizeString(len(e.ValueBytes)))
			}
		}
		if c != nil {
			for _, b := range c.blobs {
				s.Add(b.tag, b.value)
			}
		}
	})

	for _, err := range []error{groups.deviceErr, groups.captureErr, groups.gpsErr, groups.thumbnailErr} {
		if err != nil {
			i.logger.Debug("exif group could not be parsed", "error", err)
		}
	}

	return report, nil
}

// buildSection fills s using fill. If cause is non-nil, or fill panics,
// the section is marked unavailable instead.
func buildSection(s *model.Section, cause error, fill func(*model.Section)) {
	if cause != nil {
		s.MarkUnavailable(cause.Error())
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.MarkUnavailable(fmt.Sprintf("extraction failed: %v", r))
		}
	}()
	fill(s)
}
