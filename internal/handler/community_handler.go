package handler

import (
	"strconv"

	"Nemi_Hub/internal/service"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	svc *service.CommunityService
}

type CommunityCreateReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func NewCommunityHandler(svc *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{svc: svc}
}

func (h *CommunityHandler) Create(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}

	var req CommunityCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	community, err := h.svc.CreateCommunity(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}

	ok(c, gin.H{
		"id":          community.ID,
		"name":        community.Name,
		"description": community.Description,
	})
}

func (h *CommunityHandler) Join(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	communityID, valid := paramID(c, "id")
	if !valid {
		return
	}

	if err := h.svc.JoinCommunity(c.Request.Context(), userID, communityID); err != nil {
		writeError(c, err)
		return
	}

	ok(c, nil)
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	communityID, valid := paramID(c, "id")
	if !valid {
		return
	}

	if err := h.svc.LeaveCommunity(c.Request.Context(), userID, communityID); err != nil {
		writeError(c, err)
		return
	}

	ok(c, nil)
}

func (h *CommunityHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))

	list, err := h.svc.ListCommunities(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, cm := range list {
		out = append(out, gin.H{
			"id":          cm.ID,
			"name":        cm.Name,
			"description": cm.Description,
			"creator_id":  cm.CreatorID,
		})
	}
	ok(c, gin.H{"list": out})
}
