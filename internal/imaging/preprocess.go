package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/jdeng/goheif"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
)

const jpegQuality = 90

// ConversionError reports a HEIC/HEIF transcode failure for one file. It is
// recoverable: the affected image becomes a sentinel row and the batch
// continues.
type ConversionError struct {
	Filename string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s: %v", e.Filename, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsHEIC reports whether the filename carries a HEIC/HEIF extension,
// case-insensitively.
func IsHEIC(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".heic" || ext == ".heif"
}

// Preprocessor normalizes uploaded images into an encoding the recognition
// backends accept. It holds no per-image state and writes nothing to disk.
type Preprocessor struct {
	maxEdge uint // longest image edge in pixels; 0 disables downscaling
}

// NewPreprocessor creates a preprocessor. Images whose longest edge exceeds
// maxEdge are downscaled before transport.
func NewPreprocessor(maxEdge uint) *Preprocessor {
	return &Preprocessor{maxEdge: maxEdge}
}

// Prepare returns bytes ready for transport to a recognition backend. HEIC
// and HEIF files are transcoded to JPEG; a transcode failure returns a
// *ConversionError. Other files pass through unchanged, except that
// decodable oversized rasters are downscaled.
func (p *Preprocessor) Prepare(data []byte, filename string) ([]byte, error) {
	if IsHEIC(filename) {
		return p.transcodeHEIC(data, filename)
	}

	if p.maxEdge == 0 {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Not decodable locally; let the backend judge the bytes.
		return data, nil
	}
	if uint(cfg.Width) <= p.maxEdge && uint(cfg.Height) <= p.maxEdge {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}

	encoded, err := encodeJPEG(p.downscale(img))
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("failed to re-encode downscaled image, sending original")
		return data, nil
	}

	log.Debug().
		Str("filename", filename).
		Int("originalBytes", len(data)).
		Int("preparedBytes", len(encoded)).
		Msg("downscaled oversized image")

	return encoded, nil
}

func (p *Preprocessor) transcodeHEIC(data []byte, filename string) ([]byte, error) {
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ConversionError{Filename: filename, Err: err}
	}

	encoded, err := encodeJPEG(p.downscale(img))
	if err != nil {
		return nil, &ConversionError{Filename: filename, Err: err}
	}

	log.Debug().Str("filename", filename).Int("jpegBytes", len(encoded)).Msg("transcoded heic image")
	return encoded, nil
}

func (p *Preprocessor) downscale(img image.Image) image.Image {
	if p.maxEdge == 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := uint(bounds.Dx()), uint(bounds.Dy())
	if w <= p.maxEdge && h <= p.maxEdge {
		return img
	}
	if w >= h {
		return resize.Resize(p.maxEdge, 0, img, resize.Lanczos3)
	}
	return resize.Resize(0, p.maxEdge, img, resize.Lanczos3)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
