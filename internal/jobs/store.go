package jobs

import (
	"sync"

	"github.com/qs3c/insight_go_client/internal/model"
)

// Store 在途任务的内存快照，进程退出即丢弃（任务不做跨会话持久化）
type Store struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]model.Job),
	}
}

// Put 写入最新快照
func (s *Store) Put(snapshot model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[snapshot.TaskID] = snapshot
}

// Get 读取快照
func (s *Store) Get(taskID string) (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[taskID]
	return job, ok
}

// Delete 移除快照
func (s *Store) Delete(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, taskID)
}
