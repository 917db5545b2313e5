package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SNProject/logger"
	"SNProject/middleware/security"
	chatsrv "SNProject/module/chat/service"
	"SNProject/tools/errs"
)

// Api 会话与历史的 REST 面。实时收发走 WebSocket 通道，这里只做
// 会话生命周期、成员管理和读路径。
type Api struct {
	Convs *chatsrv.ConversationService
	Msgs  *chatsrv.MessageService
}

func NewApi(convs *chatsrv.ConversationService, msgs *chatsrv.MessageService) *Api {
	return &Api{Convs: convs, Msgs: msgs}
}

// Register 挂到带鉴权的路由组下
func (a *Api) Register(g *gin.RouterGroup) {
	g.POST("/conversations/direct", a.CreateDirect)
	g.POST("/conversations/group", a.CreateGroup)
	g.GET("/conversations", a.ListMine)
	g.GET("/conversations/:id", a.GetConversation)
	g.GET("/conversations/:id/messages", a.History)
	g.POST("/conversations/:id/participants", a.AddParticipant)
	g.DELETE("/conversations/:id/participants/:userId", a.RemoveParticipant)
	g.PUT("/conversations/:id/mute", a.SetMuted)
	g.PUT("/conversations/:id/nickname", a.SetNickname)
	g.PUT("/conversations/:id/participants/:userId/admin", a.SetAdmin)
}

type createDirectReq struct {
	PeerID string `json:"peerId"`
}

func (a *Api) CreateDirect(c *gin.Context) {
	uid := security.UserID(c)
	var req createDirectReq
	if err := c.ShouldBindJSON(&req); err != nil || req.PeerID == "" {
		fail(c, errs.ErrBadRequest.WithDetail("peerId is required"))
		return
	}
	conv, err := a.Convs.EnsureDirect(c.Request.Context(), uid, req.PeerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

type createGroupReq struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

func (a *Api) CreateGroup(c *gin.Context) {
	uid := security.UserID(c)
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		fail(c, errs.ErrBadRequest.WithDetail("name is required"))
		return
	}
	conv, err := a.Convs.CreateGroup(c.Request.Context(), uid, req.Name, req.MemberIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (a *Api) ListMine(c *gin.Context) {
	uid := security.UserID(c)
	convs, err := a.Convs.ListUserConversations(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (a *Api) GetConversation(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	if err := a.requireParticipant(c, convID, uid); err != nil {
		fail(c, err)
		return
	}
	conv, err := a.Convs.GetByID(c.Request.Context(), convID)
	if err != nil {
		fail(c, err)
		return
	}
	parts, err := a.Convs.ListParticipants(c.Request.Context(), convID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "participants": parts})
}

// History 倒着取最近 limit 条，交给服务层按删除标记折叠后升序返回
func (a *Api) History(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	if err := a.requireParticipant(c, convID, uid); err != nil {
		fail(c, err)
		return
	}
	limit := queryInt(c, "limit", 50)
	entries, err := a.Msgs.History(c.Request.Context(), convID, uid, int64(limit))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": entries})
}

type memberReq struct {
	UserID string `json:"userId"`
}

func (a *Api) AddParticipant(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	var req memberReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		fail(c, errs.ErrBadRequest.WithDetail("userId is required"))
		return
	}
	if err := a.requireAdmin(c, convID, uid); err != nil {
		fail(c, err)
		return
	}
	if err := a.Convs.AddParticipant(c.Request.Context(), convID, req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RemoveParticipant 管理员可踢人，普通成员只能移除自己（退群）
func (a *Api) RemoveParticipant(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	target := c.Param("userId")
	if target != uid {
		if err := a.requireAdmin(c, convID, uid); err != nil {
			fail(c, err)
			return
		}
	}
	if err := a.Convs.RemoveParticipant(c.Request.Context(), convID, target); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type muteReq struct {
	Muted bool `json:"muted"`
}

func (a *Api) SetMuted(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	var req muteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail("invalid body"))
		return
	}
	if err := a.Convs.SetMuted(c.Request.Context(), convID, uid, req.Muted); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type nicknameReq struct {
	Nickname string `json:"nickname"`
}

func (a *Api) SetNickname(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	var req nicknameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail("invalid body"))
		return
	}
	if err := a.Convs.SetNickname(c.Request.Context(), convID, uid, req.Nickname); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type adminReq struct {
	Admin bool `json:"admin"`
}

func (a *Api) SetAdmin(c *gin.Context) {
	uid := security.UserID(c)
	convID := c.Param("id")
	target := c.Param("userId")
	var req adminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail("invalid body"))
		return
	}
	if err := a.requireAdmin(c, convID, uid); err != nil {
		fail(c, err)
		return
	}
	if err := a.Convs.SetAdmin(c.Request.Context(), convID, target, req.Admin); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *Api) requireParticipant(c *gin.Context, convID, userID string) error {
	ok, err := a.Convs.IsParticipant(c.Request.Context(), convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotParticipant
	}
	return nil
}

func (a *Api) requireAdmin(c *gin.Context, convID, userID string) error {
	parts, err := a.Convs.ListParticipants(c.Request.Context(), convID)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if p.UserID == userID {
			if p.IsAdmin {
				return nil
			}
			return errs.ErrNotAdmin
		}
	}
	return errs.ErrNotParticipant
}

func queryInt(c *gin.Context, key string, def int) int {
	s := c.Query(key)
	if s == "" {
		return def
	}
	x, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return x
}

func fail(c *gin.Context, err error) {
	ce := errs.CodeOf(err)
	status := http.StatusInternalServerError
	switch ce.Code / 100 {
	case 400:
		status = http.StatusBadRequest
	case 401:
		status = http.StatusUnauthorized
	case 403:
		status = http.StatusForbidden
	case 404:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"code": ce.Code, "msg": ce.Msg, "detail": ce.Detail})
}
