package mediapipe

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zk94007/osum-vsl/shared/util"
)

// Cropper crops an image (by public URL) to an exact pixel size.
type Cropper interface {
	Crop(ctx context.Context, imageURL, dest string, width, height int) error
}

// ThumborCropper crops through a thumbor server's smart-crop endpoint, which
// keeps detected faces and focal points in frame.
type ThumborCropper struct {
	baseURL string
}

func NewThumborCropper(baseURL string) *ThumborCropper {
	return &ThumborCropper{baseURL: baseURL}
}

func (t *ThumborCropper) Crop(ctx context.Context, imageURL, dest string, width, height int) error {
	cropURL := fmt.Sprintf("%s/unsafe/%dx%d/smart/%s",
		t.baseURL, width, height, url.QueryEscape(imageURL))
	if err := util.DownloadFile(ctx, cropURL, dest); err != nil {
		return fmt.Errorf("smart crop %s: %w", imageURL, err)
	}
	return nil
}
