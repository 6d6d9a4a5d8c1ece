package intent

import "sync"

// Queue collects intents from many connections and hands them to the loop one turn
// at a time. Intents keep their arrival order within a turn.
type Queue struct {
	mu      sync.Mutex
	gameID  string
	next    int
	pending []Intent
}

// NewQueue starts numbering turns at zero.
func NewQueue(gameID string) *Queue {
	return &Queue{gameID: gameID}
}

// Submit appends an intent to the next turn.
func (q *Queue) Submit(in Intent) {
	q.mu.Lock()
	q.pending = append(q.pending, in)
	q.mu.Unlock()
}

// NextTurn drains the pending intents into a numbered turn. Empty turns are still
// produced so every tick has a turn.
func (q *Queue) NextTurn() Turn {
	q.mu.Lock()
	defer q.mu.Unlock()
	turn := Turn{TurnNumber: q.next, GameID: q.gameID, Intents: q.pending}
	if turn.Intents == nil {
		turn.Intents = []Intent{}
	}
	q.pending = nil
	q.next++
	return turn
}

// Pending reports how many intents wait for the next turn.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
