package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/voyago/voyago-go/internal/errors"
)

// Variant names the three stored sizes of a photo.
type Variant struct {
	Name     string
	MaxWidth int
}

// Variants are written for every stored photo, smallest first.
var Variants = []Variant{
	{Name: "small", MaxWidth: 320},
	{Name: "medium", MaxWidth: 768},
	{Name: "large", MaxWidth: 1280},
}

const defaultJPEGQuality = 85

// resizeToWidth scales img down to maxWidth, preserving aspect ratio.
// Images narrower than maxWidth are returned unchanged; upscaling would
// only inflate storage without adding detail.
func resizeToWidth(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

// writeVariants encodes all size variants of img as JPEG under dir, using
// the naming pattern {order}_{variant}.jpg. On any failure the variants
// already written for this photo are removed so the photo leaves no
// half-stored files behind.
func writeVariants(img image.Image, dir string, order, quality int) (paths map[string]string, err error) {
	if quality <= 0 {
		quality = defaultJPEGQuality
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("directory", dir).
			Component("media").
			Build()
	}

	paths = make(map[string]string, len(Variants))
	written := make([]string, 0, len(Variants))

	defer func() {
		if err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
		}
	}()

	for _, v := range Variants {
		path := filepath.Join(dir, variantFileName(order, v.Name))
		resized := resizeToWidth(img, v.MaxWidth)
		if saveErr := imaging.Save(resized, path, imaging.JPEGQuality(quality)); saveErr != nil {
			return nil, errors.Newf("failed to save %s variant: %w", v.Name, saveErr).
				Category(errors.CategoryImageResize).
				Context("path", path).
				Context("variant", v.Name).
				Component("media").
				Build()
		}
		written = append(written, path)
		paths[v.Name] = path
	}

	return paths, nil
}

func variantFileName(order int, variant string) string {
	return fmt.Sprintf("%d_%s.jpg", order, variant)
}
