package types

import (
	"errors"
	"fmt"
)

// Stage identifies one processor in the pipeline. The values are part of the
// wire contract: status-polling clients match on them.
type Stage string

const (
	StageSSMLEnhancer Stage = "ssmlenhancer"
	StageGoogleTTS    Stage = "googletts"
	StageGentle       Stage = "gentle"
	StageOpenAI       Stage = "openai"
	StageMediaPipe    Stage = "mediapipe"
	StageVideoRender  Stage = "videorender"
	StepCompleted     Stage = "completed"
)

// StageOrder is the fixed, hand-coded chain. Fan-out and ordering are not
// user-configurable.
var StageOrder = []Stage{
	StageSSMLEnhancer,
	StageGoogleTTS,
	StageGentle,
	StageOpenAI,
	StageMediaPipe,
	StageVideoRender,
}

// NextStage returns the stage following s, or ok=false when s is the last one.
func NextStage(s Stage) (Stage, bool) {
	for i, stage := range StageOrder {
		if stage == s && i+1 < len(StageOrder) {
			return StageOrder[i+1], true
		}
	}
	return "", false
}

// Job status values. Deleted and failed are absorbing.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusDeleted    = "deleted"
)

// ErrJobCancelled is the cancellation sentinel. The coordinator recognizes it,
// marks the job deleted and suppresses it from failure logging.
var ErrJobCancelled = errors.New("Job has been cancelled by user.")

const (
	VideoExt      = "mp4"
	ImageExt      = "jpg"
	VideoDataType = "video"
	ImageDataType = "image"
)

// FileRef is one named output reference, serialized as {"label": "ref"}.
type FileRef map[string]string

// JobStatus is the durable per-job record read by status-polling clients.
// Always written as a whole (read-modify-write, no partial updates).
type JobStatus struct {
	Step       Stage     `json:"step"`
	Status     string    `json:"status"`
	Percentage int       `json:"percentage"`
	Files      []FileRef `json:"files"`
}

// StageMessage is the unit of work passed between stage queues. The job id is
// the correlation key for status lookup and cancellation across all stages.
type StageMessage struct {
	JobID      string `json:"jobId"`
	PayloadRef string `json:"payloadRef"`
	Cancelled  int    `json:"cancelled"`
}

// MediaContent holds one rendered reference per aspect profile.
type MediaContent struct {
	Landscape string `json:"landscape"`
	Portrait  string `json:"portrait"`
	Square    string `json:"square"`
}

// TextContext is the before/current/after window used by the content chooser.
type TextContext struct {
	Before  string `json:"before,omitempty"`
	Current string `json:"current"`
	After   string `json:"after,omitempty"`
}

// Row is one timed unit of narration: a caption plus, after content selection,
// the media backing it. Rows are ordered and non-overlapping in time.
// Times are milliseconds from the start of the narration audio.
type Row struct {
	Text        string        `json:"text"`
	StartTime   int64         `json:"startTime"`
	EndTime     int64         `json:"endTime"`
	Type        string        `json:"type,omitempty"` // "video" or "image"
	RawContent  string        `json:"rawContent,omitempty"`
	Content     *MediaContent `json:"content,omitempty"`
	TextContext *TextContext  `json:"textContext,omitempty"`
}

// Word is one aligned word. Fixed marks a timing that was interpolated because
// the aligner could not match the word to audio. Immutable once built.
type Word struct {
	Word        string `json:"word"`
	StartTimeMs int64  `json:"startTimeMs"`
	EndTimeMs   int64  `json:"endTimeMs"`
	Fixed       bool   `json:"fixed,omitempty"`
}

// Disclaimer is a source text span plus the overlay text shown while it is
// spoken. Times are resolved by the alignment stage.
type Disclaimer struct {
	Text       string `json:"text"`
	Disclaimer string `json:"disclaimer,omitempty"`
	StartTime  int64  `json:"startTime,omitempty"`
	EndTime    int64  `json:"endTime,omitempty"`
}

type Citation struct {
	Text      string `json:"text"`
	Citation  string `json:"citation,omitempty"`
	StartTime int64  `json:"startTime,omitempty"`
	EndTime   int64  `json:"endTime,omitempty"`
}

// Image is a product or guarantee overlay anchored to a text span.
type Image struct {
	OriginalName string `json:"originalName,omitempty"`
	RawContent   string `json:"rawContent,omitempty"`
	Text         string `json:"text,omitempty"`
	Type         string `json:"type,omitempty"` // "product" or "guarantee"
	StartTime    int64  `json:"startTime,omitempty"`
	EndTime      int64  `json:"endTime,omitempty"`
}

type UploadedImage struct {
	OriginalName string `json:"originalName"`
	Type         string `json:"type"`
	RawContent   string `json:"rawContent"`
}

// JobData is the job payload blob. It grows stage by stage: every stage reads
// the fields of earlier stages as immutable inputs and appends its own.
type JobData struct {
	Script         string          `json:"script"`
	UploadedImages []UploadedImage `json:"uploadedImages,omitempty"`
	VoiceGender    string          `json:"voiceGender,omitempty"`
	UseVidux       int             `json:"useVidux"`
	VideosPercent  int             `json:"videosPercent"`

	// ssmlenhancer
	SSML         string       `json:"ssml,omitempty"`
	EnhancedText string       `json:"enhancedText,omitempty"`
	PlainText    string       `json:"plainText,omitempty"`
	Disclaimers  []Disclaimer `json:"disclaimers,omitempty"`
	Citations    []Citation   `json:"citations,omitempty"`
	Images       []Image      `json:"images,omitempty"`

	// googletts
	TTSWavFileURL string `json:"ttsWavFileUrl,omitempty"`

	// gentle
	Rows           []Row  `json:"rows,omitempty"`
	Sentences      []Row  `json:"sentences,omitempty"`
	Words          []Word `json:"words,omitempty"`
	SubtitleCSVURL string `json:"subtitleCSVUrl,omitempty"`
	SubtitleSRTURL string `json:"subtitleSRTUrl,omitempty"`

	BackgroundAudioFileURL string `json:"backgroundAudioFileUrl,omitempty"`
}

// MissingFieldError reports a payload field required by a stage but absent,
// i.e. an upstream stage did not do its job.
type MissingFieldError struct {
	Stage Stage
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required payload field %q", e.Stage, e.Field)
}

// RequireSSML validates the googletts stage entry.
func (d *JobData) RequireSSML() error {
	if d.SSML == "" {
		return &MissingFieldError{Stage: StageGoogleTTS, Field: "ssml"}
	}
	return nil
}

// RequireTTSAudio validates the gentle stage entry.
func (d *JobData) RequireTTSAudio() error {
	if d.TTSWavFileURL == "" {
		return &MissingFieldError{Stage: StageGentle, Field: "ttsWavFileUrl"}
	}
	if d.PlainText == "" {
		return &MissingFieldError{Stage: StageGentle, Field: "plainText"}
	}
	return nil
}

// RequireRows validates entry of the selection and media stages.
func (d *JobData) RequireRows(stage Stage) error {
	if len(d.Rows) == 0 {
		return &MissingFieldError{Stage: stage, Field: "rows"}
	}
	return nil
}
