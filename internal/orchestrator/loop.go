// ABOUTME: Per-conversation apply loop serializing UI and history mutations
// ABOUTME: Replaces cross-context mutation with explicit message passing onto one goroutine

package orchestrator

// loopBufferSize is the pending-operation buffer per conversation. Posts
// block when full, which keeps ordering intact under a slow consumer.
const loopBufferSize = 64

// applyLoop runs every mutation for one conversation on a single goroutine.
// Operations execute strictly in post order, which is the only ordering
// guarantee an exchange needs: fragments in arrival order, terminal
// commit/rollback after the last applied fragment.
type applyLoop struct {
	ops  chan func()
	done chan struct{}
}

func newApplyLoop() *applyLoop {
	l := &applyLoop{
		ops:  make(chan func(), loopBufferSize),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *applyLoop) run() {
	defer close(l.done)
	for op := range l.ops {
		op()
	}
}

// post enqueues an operation. Blocks if the loop is saturated.
func (l *applyLoop) post(op func()) {
	l.ops <- op
}

// stop closes the loop after all posted operations have been applied.
// The caller must guarantee no further posts.
func (l *applyLoop) stop() {
	close(l.ops)
	<-l.done
}
