package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
)

// FileOpener serves frames from a still image on disk. It stands in for a
// real camera in CLI runs and headless environments.
type FileOpener struct {
	Path string
}

func (o *FileOpener) Open(ctx context.Context, c Constraints) (Device, error) {
	f, err := os.Open(o.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image file: %w", err)
	}
	return &fileDevice{img: img}, nil
}

type fileDevice struct {
	img image.Image
}

func (d *fileDevice) Frame(ctx context.Context) (image.Image, error) {
	return d.img, nil
}

func (d *fileDevice) Close() error {
	return nil
}
