package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"SNProject/tools/errs"
	security "SNProject/tools/security"
)

// —— context key ——
// 下游 handler 统一用这个 key 读取当前用户。
const CtxUserIDKey = "authUserID"

type Options struct {
	JWT security.Options

	// 读取哪个请求头；默认 "Authorization"，兼容 Bearer 前缀
	HeaderToken               string
	EnableAuthorizationBearer bool
}

func DefaultOptions(jwt security.Options) *Options {
	return &Options{
		JWT:                       jwt,
		HeaderToken:               "Authorization",
		EnableAuthorizationBearer: true,
	}
}

// Middleware 校验访问令牌并把用户ID写入 context。
// 令牌在握手（请求）时校验一次，之后的 handler 不再重复校验。
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c, opts)
		userID, err := security.Verify(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.CodeOf(err))
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// ExtractToken 支持 Authorization: Bearer xxx 以及 ?token= 查询参数
// （websocket 握手场景浏览器端无法自定义 Header）。
func ExtractToken(c *gin.Context, opts *Options) string {
	header := opts.HeaderToken
	if header == "" {
		header = "Authorization"
	}
	token := strings.TrimSpace(c.GetHeader(header))
	if token != "" && opts.EnableAuthorizationBearer {
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
	}
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	return token
}

// UserID 取出 Middleware 写入的用户ID。
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserIDKey)
	s, _ := v.(string)
	return s
}
