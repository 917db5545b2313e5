package chat

import (
	"sync"

	"SNProject/logger"
	"SNProject/tools/safe"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout 把一份负载投递给一组连接的工作池。
// 投递即入各连接的发送队列；慢客户端队列满则丢帧（至多一次）。
type Fanout struct {
	jobs chan fanoutJob

	mu     sync.RWMutex
	closed bool
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 256
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		safe.SafeGo(func() {
			for job := range f.jobs {
				f.deliver(job)
			}
		})
	}
	return f
}

// deliver 单个任务的投递；panic 只废弃这一个任务，worker 继续活着。
func (f *Fanout) deliver(job fanoutJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[fanout] deliver panic: %v", r)
		}
	}()
	for _, c := range job.conns {
		if !c.enqueue(job.payload) {
			logger.Debugf("[fanout] drop frame, slow client conn=%s user=%s", c.ConnID, c.UserID)
		}
	}
}

// Broadcast 在 Close 之后变成空操作，生产方不会撞上已关闭的队列。
func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	f.jobs <- fanoutJob{conns: conns, payload: payload}
}

// Close 幂等；等所有在途 Broadcast 入队完毕后关闭队列。
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.jobs)
}
