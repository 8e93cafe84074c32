// Package model provides data-structs for watermark configs, templates and export jobs
package model

import (
	"errors"

	"github.com/disintegration/imaging"
)

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")            // 500
	ErrInvalidConfig     error = errors.New("invalid watermark configuration")                  // 400
	ErrRender            error = errors.New("failed to render watermark")                       // 422
	ErrPersistence       error = errors.New("template storage failure")                         // 500
	ErrInvalidOutputPath error = errors.New("invalid output path")                              // 400
	ErrNotFound          error = errors.New("specified template doesn't exist")                 // 404
	ErrJobNotFound       error = errors.New("specified export job doesn't exist")               // 404
	ErrJobRunning        error = errors.New("export job is not finished yet")                   // 409
	ErrUnsupportedFormat error = errors.New("unsupported output format")                        // 400
	ErrIncorrectQuery    error = errors.New("incorrect request parameters")                     // 400
	ErrEmptySource       error = errors.New("empty/incorrect source image provided")            // 400
	ErrRateLimited       error = errors.New("too many preview requests, slow down")             // 429
)

//--------------------

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatGIF  Format = "gif"
)

var GetImagingFormat = map[Format]imaging.Format{
	FormatPNG:  imaging.PNG,
	FormatJPEG: imaging.JPEG,
	FormatTIFF: imaging.TIFF,
	FormatBMP:  imaging.BMP,
	FormatGIF:  imaging.GIF,
}

var GetFileExt = map[Format]string{
	FormatPNG:  ".png",
	FormatJPEG: ".jpg",
	FormatTIFF: ".tiff",
	FormatBMP:  ".bmp",
	FormatGIF:  ".gif",
}

var GetCType = map[Format]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatTIFF: "image/tiff",
	FormatBMP:  "image/bmp",
	FormatGIF:  "image/gif",
}

// HasAlpha reports whether the format keeps an alpha channel after encoding
func (f Format) HasAlpha() bool {
	switch f {
	case FormatPNG, FormatTIFF, FormatGIF:
		return true
	}
	return false
}

// IsLossy reports whether quality applies to the format
func (f Format) IsLossy() bool {
	return f == FormatJPEG
}

// ParseFormat accepts format names and common aliases like "jpg" or "tif"
func ParseFormat(s string) (Format, error) {
	switch s {
	case "png", "PNG":
		return FormatPNG, nil
	case "jpeg", "jpg", "JPEG", "JPG":
		return FormatJPEG, nil
	case "tiff", "tif", "TIFF", "TIF":
		return FormatTIFF, nil
	case "bmp", "BMP":
		return FormatBMP, nil
	case "gif", "GIF":
		return FormatGIF, nil
	}
	return "", ErrUnsupportedFormat
}
