// Package mediapipe prepares each row's media for rendering: object tracking
// locates the most active window of every source clip, which is then cut,
// reframed and resized per aspect profile; still images are smart-cropped.
package mediapipe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	videointelligence "google.golang.org/api/videointelligence/v1"

	"github.com/zk94007/osum-vsl/shared/util"
)

// TrackedObject is one tracked entity with its active time span in seconds.
type TrackedObject struct {
	Description string
	EntityID    string
	StartTime   float64
	EndTime     float64
}

// Tracker runs object tracking on a local clip, blocking until results are
// available.
type Tracker interface {
	Track(ctx context.Context, path string) ([]TrackedObject, error)
}

// GoogleTracker submits OBJECT_TRACKING annotation requests through the
// Video Intelligence API and polls the long-running operation directly over
// authenticated HTTP. Rate limiting (HTTP 429) on either side is transient:
// the tracker sleeps 20-40s with jitter and retries without limit, bounded
// only by job cancellation ending the context.
type GoogleTracker struct {
	svc        *videointelligence.Service
	httpClient *http.Client
}

const operationsBaseURL = "https://videointelligence.googleapis.com/v1/"

func NewGoogleTracker(ctx context.Context) (*GoogleTracker, error) {
	svc, err := videointelligence.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create video intelligence service: %w", err)
	}
	httpClient, err := google.DefaultClient(ctx, videointelligence.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 client: %w", err)
	}
	return &GoogleTracker{svc: svc, httpClient: httpClient}, nil
}

// Track annotates the clip and waits for the operation to finish.
func (t *GoogleTracker) Track(ctx context.Context, path string) ([]TrackedObject, error) {
	var opName string
	for {
		name, err := t.submit(ctx, path)
		if isRateLimited(err) {
			if serr := util.Sleep(ctx, 20, 40); serr != nil {
				return nil, serr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		opName = name
		break
	}

	for {
		objects, done, err := t.poll(ctx, opName)
		if isRateLimited(err) {
			if serr := util.Sleep(ctx, 20, 40); serr != nil {
				return nil, serr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if done {
			return objects, nil
		}
		if err := util.Sleep(ctx, 5, 10); err != nil {
			return nil, err
		}
	}
}

func (t *GoogleTracker) submit(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	op, err := t.svc.Videos.Annotate(&videointelligence.GoogleCloudVideointelligenceV1AnnotateVideoRequest{
		InputContent: base64.StdEncoding.EncodeToString(content),
		Features:     []string{"OBJECT_TRACKING"},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("submit object tracking: %w", err)
	}
	return op.Name, nil
}

// operationResult is the slice of the long-running operation body the stage
// cares about.
type operationResult struct {
	Done  bool `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		AnnotationResults []struct {
			ObjectAnnotations []struct {
				Entity struct {
					Description string `json:"description"`
					EntityID    string `json:"entityId"`
				} `json:"entity"`
				Segment struct {
					StartTimeOffset string `json:"startTimeOffset"`
					EndTimeOffset   string `json:"endTimeOffset"`
				} `json:"segment"`
			} `json:"objectAnnotations"`
		} `json:"annotationResults"`
	} `json:"response"`
}

func (t *GoogleTracker) poll(ctx context.Context, opName string) ([]TrackedObject, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationsBaseURL+opName, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("poll operation %s: %w", opName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, false, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("poll operation %s: status %d", opName, resp.StatusCode)
	}

	var result operationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("poll operation %s: decode: %w", opName, err)
	}
	if !result.Done {
		return nil, false, nil
	}
	if result.Error != nil {
		return nil, false, fmt.Errorf("object tracking failed: %s (code %d)", result.Error.Message, result.Error.Code)
	}

	var objects []TrackedObject
	for _, ar := range result.Response.AnnotationResults {
		for _, oa := range ar.ObjectAnnotations {
			start, err := parseOffset(oa.Segment.StartTimeOffset)
			if err != nil {
				return nil, false, err
			}
			end, err := parseOffset(oa.Segment.EndTimeOffset)
			if err != nil {
				return nil, false, err
			}
			objects = append(objects, TrackedObject{
				Description: oa.Entity.Description,
				EntityID:    oa.Entity.EntityID,
				StartTime:   start,
				EndTime:     end,
			})
		}
	}
	return objects, true, nil
}

// parseOffset converts a protobuf duration string like "12.500s" to seconds.
func parseOffset(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("parse time offset %q: %w", s, err)
	}
	return v, nil
}

var errRateLimited = errors.New("rate limited")

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errRateLimited) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}
