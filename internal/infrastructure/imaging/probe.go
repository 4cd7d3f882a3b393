package imaging

import (
	"io"
	"os"
)

// Probe reads the pixel dimensions of an image without decoding the full
// raster.
func Probe(r io.Reader, f Format) (width, height int, err error) {
	c, ok := codecs[f]
	if !ok {
		return 0, 0, ErrUnsupportedFormat
	}
	cfg, err := c.decodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ProbeFile reads the pixel dimensions of a stored image file.
func ProbeFile(path string, f Format) (width, height int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()
	return Probe(file, f)
}
