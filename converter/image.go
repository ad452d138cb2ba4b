package converter

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Image converts between raster image formats. Formats imaging can encode
// are handled in-process; webp, ico and pdf targets are delegated to
// ImageMagick when it is installed.
type Image struct {
	logger *zap.Logger
	magick string
}

func NewImage(logger *zap.Logger, magickOverride string) *Image {
	return &Image{
		logger: logger,
		magick: lookPath(magickOverride, "magick", "convert"),
	}
}

// imaging.Save picks the encoder from the output extension; these are the
// ones it supports.
var imagingTargets = map[string]bool{
	"png": true, "jpg": true, "jpeg": true,
	"gif": true, "bmp": true, "tif": true, "tiff": true,
}

func (c *Image) Convert(ctx context.Context, inputPath, outputPath, targetFormat string, opts Options) error {
	c.logger.Info("converting image",
		zap.String("input", inputPath),
		zap.String("target", targetFormat),
	)

	if !imagingTargets[targetFormat] {
		return c.convertWithMagick(ctx, inputPath, outputPath, opts)
	}

	src, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		// webp and ico sources decode only through ImageMagick.
		if c.magick != "" {
			return c.convertWithMagick(ctx, inputPath, outputPath, opts)
		}
		return fmt.Errorf("decode image: %w", err)
	}

	out := bound(src, opts.MaxWidth, opts.MaxHeight)

	if err := imaging.Save(out, outputPath, imaging.JPEGQuality(opts.quality())); err != nil {
		return fmt.Errorf("encode %s: %w", targetFormat, err)
	}
	return nil
}

// bound scales the image down to fit within the given maximum dimensions,
// preserving aspect ratio. It never upscales.
func bound(src image.Image, maxWidth, maxHeight int) image.Image {
	b := src.Bounds()
	switch {
	case maxWidth > 0 && maxHeight > 0:
		if b.Dx() > maxWidth || b.Dy() > maxHeight {
			return imaging.Fit(src, maxWidth, maxHeight, imaging.Lanczos)
		}
	case maxWidth > 0:
		if b.Dx() > maxWidth {
			return imaging.Resize(src, maxWidth, 0, imaging.Lanczos)
		}
	case maxHeight > 0:
		if b.Dy() > maxHeight {
			return imaging.Resize(src, 0, maxHeight, imaging.Lanczos)
		}
	}
	return src
}

func (c *Image) convertWithMagick(ctx context.Context, inputPath, outputPath string, opts Options) error {
	if c.magick == "" {
		return fmt.Errorf("%w: ImageMagick is required for this target", ErrUnavailable)
	}
	args := []string{inputPath, "-quality", strconv.Itoa(opts.quality())}
	if opts.MaxWidth > 0 || opts.MaxHeight > 0 {
		args = append(args, "-resize", geometry(opts.MaxWidth, opts.MaxHeight))
	}
	args = append(args, outputPath)
	_, err := runEngine(ctx, c.logger, c.magick, args...)
	return err
}

// geometry builds an ImageMagick resize geometry that only shrinks.
func geometry(w, h int) string {
	switch {
	case w > 0 && h > 0:
		return fmt.Sprintf("%dx%d>", w, h)
	case w > 0:
		return fmt.Sprintf("%d>", w)
	default:
		return fmt.Sprintf("x%d>", h)
	}
}
