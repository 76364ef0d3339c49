package session

import "github.com/firebase/genkit/go/ai"

// RecentWindow returns the suffix of msgs covering at most the last turns
// question/answer pairs. A turn is two messages, so the bound is turns*2.
// It returns the original slice when it already fits the window.
func RecentWindow(msgs []*ai.Message, turns int) []*ai.Message {
	if turns <= 0 {
		return nil
	}
	limit := turns * 2
	if len(msgs) <= limit {
		return msgs
	}
	return msgs[len(msgs)-limit:]
}
