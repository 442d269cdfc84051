package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"status-notification/internal/adapters/primary/http/dto"
)

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: err.Error()})
		return
	}

	if err := h.monitorSvc.UpdateStatus(c.Request.Context(), req.ToHeartbeat(), c.GetHeader(headerAPIKey)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"object_name":     req.ObjectName,
			"sub_object_name": req.SubObjectName,
			"program_name":    req.ProgramName,
		}).Warn("update status failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "updated"})
}

func (h *Handler) StatusTree(c *gin.Context) {
	tree, err := h.monitorSvc.StatusTree(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("status tree failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ObjectStatusResponse, 0, len(tree))
	for _, o := range tree {
		items = append(items, dto.ToObjectStatusResponse(o))
	}

	c.JSON(http.StatusOK, items)
}

func (h *Handler) CheckStatus(c *gin.Context) {
	status, err := h.monitorSvc.CheckStatus(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("check status failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCheckStatusResponse(status))
}

func (h *Handler) Pause(c *gin.Context) {
	object, sub := targetParams(c)

	if err := h.monitorSvc.Pause(c.Request.Context(), object, sub); err != nil {
		log.WithError(err).Error("pause failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "paused"})
}

func (h *Handler) Resume(c *gin.Context) {
	object, sub := targetParams(c)

	if err := h.monitorSvc.Resume(c.Request.Context(), object, sub); err != nil {
		log.WithError(err).Error("resume failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "resumed"})
}

func (h *Handler) Delete(c *gin.Context) {
	object, sub := targetParams(c)

	if err := h.monitorSvc.Delete(c.Request.Context(), object, sub); err != nil {
		log.WithError(err).Error("delete failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "deleted"})
}

func targetParams(c *gin.Context) (object, sub string) {
	return c.Query("object_name"), c.Query("sub_object_name")
}
