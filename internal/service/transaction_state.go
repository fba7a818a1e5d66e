package service

import "strings"

// Ledger rows move pending -> success or pending -> failed, never further.
var transactionTransitions = map[string]map[string]struct{}{
	"pending": {
		"success": {},
		"failed":  {},
	},
	"success": {},
	"failed":  {},
}

func normalizeState(state string) string {
	return strings.ToLower(strings.TrimSpace(state))
}

func canTransition(current, next string) bool {
	current = normalizeState(current)
	next = normalizeState(next)
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}
