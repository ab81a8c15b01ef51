package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/store"
	"github.com/zk94007/osum-vsl/shared/types"
)

type jobsController struct {
	coordinator *servicepipe.Coordinator
	store       *store.Store
}

// RegisterJobRoutes registers job submission, status and cancellation routes.
func RegisterJobRoutes(r *gin.Engine, coordinator *servicepipe.Coordinator, st *store.Store) {
	c := &jobsController{coordinator: coordinator, store: st}
	r.POST("/api/jobs", c.handleCreateJob)
	r.GET("/api/jobs/:id/status", c.handleJobStatus)
	r.POST("/api/jobs/:id/cancel", c.handleCancelJob)
}

// CreateJobRequest is the job submission payload.
type CreateJobRequest struct {
	Script         string                `json:"script" binding:"required"`
	UploadedImages []types.UploadedImage `json:"uploadedImages"`
	VoiceGender    string                `json:"voiceGender"`
	UseVidux       int                   `json:"useVidux"`
	VideosPercent  int                   `json:"videosPercent"`
}

func (jc *jobsController) handleCreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VideosPercent < 0 || req.VideosPercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "videosPercent must be between 0 and 100"})
		return
	}

	jobID, err := jc.coordinator.StartJob(c.Request.Context(), &types.JobData{
		Script:         req.Script,
		UploadedImages: req.UploadedImages,
		VoiceGender:    req.VoiceGender,
		UseVidux:       req.UseVidux,
		VideosPercent:  req.VideosPercent,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobId": jobID})
}

func (jc *jobsController) handleJobStatus(c *gin.Context) {
	status, err := jc.store.GetJobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrStatusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// handleCancelJob raises the job's cancel flag. Every stage polls the same
// flag, so a single request reaches the job wherever it currently runs.
func (jc *jobsController) handleCancelJob(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := jc.store.GetJobStatus(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrStatusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := jc.store.Cancel(c.Request.Context(), jobID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}
