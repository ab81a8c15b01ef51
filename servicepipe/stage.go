package servicepipe

import (
	"context"
	"fmt"

	"github.com/zk94007/osum-vsl/shared/types"
)

// Enhancer is the external call surface of the first stage, narrowed for tests.
type Enhancer interface {
	Enhance(ctx context.Context, script string) (*EnhanceResult, error)
}

// SSMLEnhancerStage is the first pipeline stage: enhance the raw script into
// SSML and attach the annotation lists to the payload.
type SSMLEnhancerStage struct {
	enhancer Enhancer
}

func NewSSMLEnhancerStage(enhancer Enhancer) *SSMLEnhancerStage {
	return &SSMLEnhancerStage{enhancer: enhancer}
}

// Handle runs the enhancement and merges the result into the payload. Image
// markers in the script must refer to images the user actually uploaded;
// a dangling reference fails the job here rather than at render time.
func (s *SSMLEnhancerStage) Handle(ctx context.Context, job *StageJob, data *types.JobData) ([]types.FileRef, error) {
	if data.Script == "" {
		return nil, &types.MissingFieldError{Stage: types.StageSSMLEnhancer, Field: "script"}
	}
	if err := job.Progress(ctx, 10); err != nil {
		return nil, err
	}

	result, err := s.enhancer.Enhance(ctx, data.Script)
	if err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 60); err != nil {
		return nil, err
	}

	data.SSML = result.SSML
	data.EnhancedText = result.EnhancedText
	data.PlainText = result.PlainText
	data.Disclaimers = result.Disclaimers
	data.Citations = result.Citations
	data.Images = resolveImages(result.Images, data.UploadedImages)

	for i := range data.Images {
		if data.Images[i].RawContent == "" {
			return nil, fmt.Errorf("script references image %q which was not uploaded", data.Images[i].OriginalName)
		}
	}

	if err := job.Progress(ctx, 100); err != nil {
		return nil, err
	}
	return nil, nil
}

// resolveImages fills each scripted image marker with the content of the
// matching uploaded image.
func resolveImages(images []types.Image, uploaded []types.UploadedImage) []types.Image {
	byName := make(map[string]types.UploadedImage, len(uploaded))
	for _, u := range uploaded {
		byName[u.OriginalName] = u
	}

	out := make([]types.Image, len(images))
	for i, img := range images {
		if u, ok := byName[img.OriginalName]; ok {
			img.RawContent = u.RawContent
			if img.Type == "" {
				img.Type = u.Type
			}
		}
		out[i] = img
	}
	return out
}
