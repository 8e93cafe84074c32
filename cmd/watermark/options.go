package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

var supportedExt = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".gif"}

type options struct {
	input string

	text         string
	fontSize     float64
	color        string
	position     string
	margin       int
	offsetX      int
	offsetY      int
	rotation     float64
	opacity      int
	outlineWidth int
	outlineColor string
	fontPath     string
	imagePath    string

	output    string
	naming    string
	format    string
	quality   int
	workers   int
	overwrite bool

	template     string
	saveTemplate string
	templatesDir string

	verbose bool
	quiet   bool
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("watermark", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: watermark [flags] <file-or-directory>")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.text, "text", model.DateToken, "watermark text, {date} is replaced with the capture date")
	fs.Float64Var(&o.fontSize, "size", 32, "font size in pixels")
	fs.StringVar(&o.color, "color", "white", "text color: name, #RRGGBB[AA] or r,g,b[,a]")
	fs.StringVar(&o.position, "position", string(model.BottomRight), "anchor, e.g. top-left, center, bottom-right")
	fs.IntVar(&o.margin, "margin", 10, "margin from the edges in pixels")
	fs.IntVar(&o.offsetX, "offset-x", 0, "horizontal offset in pixels")
	fs.IntVar(&o.offsetY, "offset-y", 0, "vertical offset in pixels")
	fs.Float64Var(&o.rotation, "rotation", 0, "rotation in degrees, counter-clockwise, -180..180")
	fs.IntVar(&o.opacity, "opacity", 255, "opacity 0-255")
	fs.IntVar(&o.outlineWidth, "outline-width", 1, "text outline width, 0 disables it")
	fs.StringVar(&o.outlineColor, "outline-color", "black", "text outline color")
	fs.StringVar(&o.fontPath, "font", "", "path to a TTF font")
	fs.StringVar(&o.imagePath, "image", "", "use this image as the watermark instead of text")

	fs.StringVar(&o.output, "o", "", "output directory (default <input>_watermark)")
	fs.StringVar(&o.naming, "naming", string(model.NamingOriginal), "output names: original, prefix or suffix")
	fs.StringVar(&o.format, "format", "jpeg", "output format: jpeg, png, tiff, bmp, gif")
	fs.IntVar(&o.quality, "quality", model.DefaultQuality, "JPEG quality 1-100")
	fs.IntVar(&o.workers, "workers", 0, "parallel workers (default min(cpu, 8))")
	fs.BoolVar(&o.overwrite, "overwrite", false, "replace existing output files instead of numbering them")

	fs.StringVar(&o.template, "template", "", "load the watermark from a saved template")
	fs.StringVar(&o.saveTemplate, "save-template", "", "save the watermark built from flags under this name")
	fs.StringVar(&o.templatesDir, "templates-dir", defaultTemplatesDir(), "template directory")

	fs.BoolVar(&o.verbose, "v", false, "verbose output")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress progress output")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, errors.New("exactly one input path is required")
	}
	o.input = fs.Arg(0)

	if o.quality < 1 || o.quality > 100 {
		return options{}, fmt.Errorf("quality must be within 1..100, got %d", o.quality)
	}
	return o, nil
}

func defaultTemplatesDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./templates"
	}
	return filepath.Join(dir, "photo-watermark", "templates")
}

// watermarkConfig builds the config from flags
func (o options) watermarkConfig() (model.WatermarkConfig, error) {
	margin := o.margin
	placement := model.Placement{
		Anchor:      model.Anchor(o.position),
		OffsetX:     o.offsetX,
		OffsetY:     o.offsetY,
		RotationDeg: o.rotation,
		Margin:      &margin,
	}

	if o.imagePath != "" {
		return model.NewImageWatermark(model.ImageContent{SourcePath: o.imagePath, Opacity: o.opacity}, placement)
	}

	fill, err := model.ParseColor(o.color)
	if err != nil {
		return model.WatermarkConfig{}, err
	}
	fill.A = fill.A * clampByte(o.opacity) / 255

	text := model.TextContent{
		Value:   o.text,
		FontRef: o.fontPath,
		SizePx:  o.fontSize,
		Fill:    fill,
	}
	if o.outlineWidth > 0 {
		oc, err := model.ParseColor(o.outlineColor)
		if err != nil {
			return model.WatermarkConfig{}, err
		}
		oc.A = oc.A * clampByte(o.opacity) / 255
		text.Outline = &model.Outline{Color: oc, WidthPx: o.outlineWidth}
	}

	return model.NewTextWatermark(text, placement)
}

func (o options) outputSpec(input string) (model.OutputSpec, error) {
	f, err := model.ParseFormat(o.format)
	if err != nil {
		return model.OutputSpec{}, err
	}

	dir := o.output
	if dir == "" {
		dir = defaultOutputDir(input)
	}

	return model.OutputSpec{
		Directory:         dir,
		Naming:            model.NamingRule{Kind: model.NamingKind(o.naming)},
		Format:            f,
		Quality:           o.quality,
		OverwriteExisting: o.overwrite,
	}, nil
}

// defaultOutputDir is a sibling directory named after the input directory
func defaultOutputDir(input string) string {
	abs, err := filepath.Abs(input)
	if err != nil {
		abs = filepath.Clean(input)
	}
	if st, err := os.Stat(abs); err == nil && !st.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs + "_watermark"
}

// collectInputs returns the input file itself or the supported images of a directory, sorted by name
func collectInputs(input string) ([]string, error) {
	st, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		if !isSupported(input) {
			return nil, fmt.Errorf("%w: %q, supported: %s", model.ErrUnsupportedFormat, filepath.Ext(input), strings.Join(supportedExt, ", "))
		}
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}

	res := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isSupported(e.Name()) {
			continue
		}
		res = append(res, filepath.Join(input, e.Name()))
	}
	sort.Strings(res)
	return res, nil
}

func isSupported(name string) bool {
	return slices.Contains(supportedExt, strings.ToLower(filepath.Ext(name)))
}

func clampByte(v int) int {
	return min(max(v, 0), 255)
}
