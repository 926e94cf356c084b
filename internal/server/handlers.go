package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/errs"
	"github.com/ibeckermayer/ugc2notion/internal/types"
)

type createRequest struct {
	PostURL string `json:"postUrl"`
}

type createResponse struct {
	Message      string               `json:"message"`
	Data         types.Record         `json:"data"`
	NotionPageID string               `json:"notionPageId"`
	FailedMedia  []types.MediaFailure `json:"failedMedia"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errs.Validation("invalid request body: %v", err))
		return
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	log := zerolog.Ctx(ctx)
	log.Info().Str("post_url", req.PostURL).Msg("Creating UGC entry")

	res, err := s.creator.Create(ctx, req.PostURL)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, createResponse{
		Message:      "Successfully created UGC entry",
		Data:         res.Record,
		NotionPageID: res.PageID,
		FailedMedia:  res.FailedMedia,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	name := string(kind)
	if name == "" {
		name = "InternalError"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(kind), errorBody{Error: name, Message: err.Error()})
}
