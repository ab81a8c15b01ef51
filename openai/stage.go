package openai

import (
	"context"
	"fmt"

	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/types"
	"github.com/zk94007/osum-vsl/shared/util"
)

// keywordAttempts bounds how many keywords are tried per row before the row
// is considered unservable.
const keywordAttempts = 3

// AssetStore is the blob surface this stage needs.
type AssetStore interface {
	RehostURL(ctx context.Context, jobID, rawURL, ext string) (string, error)
}

// Stage picks one piece of content per row and re-hosts it under the job's
// namespace. Two policies: curated-catalog-only when the job asks for it,
// otherwise a stock search with a configured video/image split.
type Stage struct {
	engine *Engine
	store  AssetStore
}

func NewStage(engine *Engine, store AssetStore) *Stage {
	return &Stage{engine: engine, store: store}
}

func (s *Stage) Handle(ctx context.Context, job *servicepipe.StageJob, data *types.JobData) ([]types.FileRef, error) {
	if err := data.RequireRows(types.StageOpenAI); err != nil {
		return nil, err
	}

	useVidux := data.UseVidux == 1
	var kinds []string
	if useVidux {
		kinds = make([]string, len(data.Rows))
		for i := range kinds {
			kinds[i] = types.VideoDataType
		}
	} else {
		kinds = SplitVideosImages(len(data.Rows), data.VideosPercent, nil)
	}

	for i := range data.Rows {
		row := &data.Rows[i]

		rejected := make(map[string]bool)
		var candidates []Candidate
		for attempt := 0; attempt < keywordAttempts && len(candidates) == 0; attempt++ {
			keyword, err := s.engine.Keyword(ctx, row.Text, rejected)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rejected[keyword] = true

			if useVidux {
				candidates, err = s.engine.SearchCatalog(ctx, keyword)
			} else {
				candidates, err = s.engine.SearchStock(ctx, keyword, kinds[i])
			}
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("row %d: no content found for %q", i, row.Text)
		}

		choice, err := s.engine.Choose(ctx, row.TextContext, candidates)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		chosen := candidates[choice]

		ext := util.Ext(chosen.URL)
		if ext == "" {
			if kinds[i] == types.VideoDataType {
				ext = types.VideoExt
			} else {
				ext = types.ImageExt
			}
		}
		key, err := s.store.RehostURL(ctx, job.JobID, chosen.URL, ext)
		if err != nil {
			return nil, fmt.Errorf("row %d: rehost %s: %w", i, chosen.URL, err)
		}

		row.Type = kinds[i]
		row.RawContent = key

		if err := job.Progress(ctx, (i+1)*100/len(data.Rows)); err != nil {
			return nil, err
		}
	}

	return nil, nil
}
