package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"SNProject/logger"
	"SNProject/middleware/security"
	"SNProject/module/user/service"
	"SNProject/tools/errs"
)

// Api 用户档案只读接口。档案的编辑入口在别的系统，这里只供
// 聊天端取展示用的公开字段。
type Api struct {
	Users *service.UserService
}

func NewApi(users *service.UserService) *Api { return &Api{Users: users} }

func (a *Api) Register(g *gin.RouterGroup) {
	g.GET("/users/me", a.Me)
	g.GET("/users/:id", a.GetProfile)
}

func (a *Api) Me(c *gin.Context) {
	uid := security.UserID(c)
	u, err := a.Users.GetByID(c.Request.Context(), uid)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (a *Api) GetProfile(c *gin.Context) {
	p, err := a.Users.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}

func writeErr(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": errs.CodeRecordNotFound, "msg": "record not found"})
		return
	}
	logger.Errorf("[user] %s: %v", c.Request.URL.Path, err)
	ce := errs.CodeOf(err)
	c.JSON(http.StatusInternalServerError, gin.H{"code": ce.Code, "msg": ce.Msg})
}
