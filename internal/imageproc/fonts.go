package imageproc

import (
	"os"

	"github.com/golang/freetype/truetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/image/font/gofont/goregular"
)

// FontCache keeps parsed fonts by file path.
// A path that can't be read or parsed resolves to the embedded Go Regular font.
type FontCache struct {
	fonts    *lru.Cache[string, *truetype.Font]
	fallback *truetype.Font
}

func NewFontCache(size int) (*FontCache, error) {
	fallback, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}

	fonts, err := lru.New[string, *truetype.Font](size)
	if err != nil {
		return nil, err
	}

	return &FontCache{fonts: fonts, fallback: fallback}, nil
}

func (c *FontCache) Get(ref string) *truetype.Font {
	if ref == "" {
		return c.fallback
	}
	if f, ok := c.fonts.Get(ref); ok {
		return f
	}

	f := c.fallback
	data, err := os.ReadFile(ref)
	switch {
	case err != nil:
		zlog.Logger.Warn().Err(err).Str("font", ref).Msg("Font is not readable, using default")
	default:
		parsed, pErr := truetype.Parse(data)
		if pErr != nil {
			zlog.Logger.Warn().Err(pErr).Str("font", ref).Msg("Font is not parsable, using default")
			break
		}
		f = parsed
	}

	c.fonts.Add(ref, f)
	return f
}
