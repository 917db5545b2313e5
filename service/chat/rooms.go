package chat

import (
	"sync"
)

// Rooms 会话路由：conversation -> 已加入的连接集合。
//
// 一条连接可以同时在多个会话组里；组成员身份只在断开时整体清除，
// 切页不退组。资格校验在 join handler 里做，这里只管集合。
type Rooms struct {
	mu     sync.RWMutex
	byConv map[string]map[string]*Client   // conv -> connID -> client
	byConn map[string]map[string]struct{}  // connID -> conv set（断开反查用）
}

func NewRooms() *Rooms {
	return &Rooms{
		byConv: make(map[string]map[string]*Client),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join 幂等：重复加入同一会话无副作用。
func (r *Rooms) Join(convID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byConv[convID]
	if m == nil {
		m = make(map[string]*Client)
		r.byConv[convID] = m
	}
	m[c.ConnID] = c

	set := r.byConn[c.ConnID]
	if set == nil {
		set = make(map[string]struct{})
		r.byConn[c.ConnID] = set
	}
	set[convID] = struct{}{}
}

// Drop 连接断开时调用，把它从所有会话组摘掉。
func (r *Rooms) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for convID := range r.byConn[c.ConnID] {
		if m := r.byConv[convID]; m != nil {
			delete(m, c.ConnID)
			if len(m) == 0 {
				delete(r.byConv, convID)
			}
		}
	}
	delete(r.byConn, c.ConnID)
}

// Members 会话组当前连接快照。
func (r *Rooms) Members(convID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byConv[convID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Contains 连接是否已在该会话组。
func (r *Rooms) Contains(convID string, c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byConv[convID]
	if m == nil {
		return false
	}
	_, ok := m[c.ConnID]
	return ok
}
