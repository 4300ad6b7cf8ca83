package service

import "sync"

// replyGuard reserves a conversation for one in-flight streamed reply. A
// second request for the same conversation is rejected instead of queued;
// the caller maps that to the duplicate-reply error.
type replyGuard struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func newReplyGuard() *replyGuard {
	return &replyGuard{active: make(map[int64]struct{})}
}

// acquire reserves the conversation. It reports false when a reply is
// already streaming for it.
func (g *replyGuard) acquire(conversationID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[conversationID]; busy {
		return false
	}
	g.active[conversationID] = struct{}{}
	return true
}

func (g *replyGuard) release(conversationID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, conversationID)
}
