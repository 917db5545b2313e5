package chat

import (
	"sync"
)

// Registry 在线注册表：进程内的 presence 唯一归属者。
//
// byUser 每用户只记一条“presence 把手”——同一用户再开一条连接会
// 覆盖旧映射（presence 不做多端），但旧连接本身保持打开、仍在房间里。
// byConn 记录全部活跃连接，供 presence 全网广播用。
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	byConn map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

// Add 登记连接并把该用户的 presence 把手指向它。
// 返回该用户此前是否已在线（决定要不要广播 user_online）。
func (r *Registry) Add(c *Client) (wasOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, wasOnline = r.byUser[c.UserID]
	r.byUser[c.UserID] = c
	r.byConn[c.ConnID] = c
	return wasOnline
}

// Remove 注销连接。只有当这条连接仍是该用户的 presence 把手时才摘除
// 映射（避免新连接顶替后，旧连接退出把新把手误删）。
// 返回该用户是否因此下线。
func (r *Registry) Remove(c *Client) (wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byConn, c.ConnID)
	if cur, ok := r.byUser[c.UserID]; ok && cur.ConnID == c.ConnID {
		delete(r.byUser, c.UserID)
		return true
	}
	return false
}

// Get 用户当前的 presence 连接。
func (r *Registry) Get(user string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[user]
	return c, ok
}

// Conns 全部活跃连接快照（presence 广播目标）。
func (r *Registry) Conns() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// OnlineUsers 当前在线用户ID快照。
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	return out
}

func (r *Registry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byConn {
		if c.WS != nil {
			_ = c.WS.Close()
		}
	}
	r.byUser = map[string]*Client{}
	r.byConn = map[string]*Client{}
}
