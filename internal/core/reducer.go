package core

import (
	"fmt"
	"strings"
	"time"

	"countdown/internal/domain"
)

// Reduce is a pure function that takes the current collection and an action
// and returns the next collection. changed is false when the action was a
// no-op (unknown id, duplicate category, ...). The input is never mutated.
func Reduce(state domain.Collection, action Action, now time.Time) (domain.Collection, bool, error) {
	switch action.Type {
	case ActionLoadData:
		data, ok := action.Payload.(*domain.Collection)
		if !ok && action.Payload != nil {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceLoad(data), true, nil
	case ActionAddTimer:
		t, ok := action.Payload.(domain.Timer)
		if !ok {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceAdd(state, t)
	case ActionUpdateTimer:
		t, ok := action.Payload.(domain.Timer)
		if !ok {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceUpdate(state, t)
	case ActionDeleteTimer:
		id, ok := action.Payload.(string)
		if !ok {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceDelete(state, id)
	case ActionAddCategory:
		name, ok := action.Payload.(string)
		if !ok {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceAddCategory(state, name)
	case ActionResetTimers:
		ids, ok := action.Payload.([]string)
		if !ok {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceReset(state, ids, now)
	case ActionCompleteTimer:
		id, ok := action.Payload.(string)
		if !ok {
			return state, false, fmt.Errorf("invalid %s payload %T", action.Type, action.Payload)
		}
		return reduceComplete(state, id, now)
	default:
		return state, false, fmt.Errorf("unknown action type: %s", action.Type)
	}
}

func reduceLoad(data *domain.Collection) domain.Collection {
	if data == nil {
		return domain.Collection{Timers: []domain.Timer{}, Categories: []string{}}
	}
	return data.Clone()
}

func reduceAdd(state domain.Collection, t domain.Timer) (domain.Collection, bool, error) {
	if t.Status != domain.StatusCreated {
		return state, false, nil
	}
	if _, exists := state.Find(t.ID); exists || t.ID == "" {
		return state, false, nil
	}
	next := state
	next.Timers = make([]domain.Timer, 0, len(state.Timers)+1)
	next.Timers = append(next.Timers, state.Timers...)
	next.Timers = append(next.Timers, t.Clone())
	return next, true, nil
}

func reduceUpdate(state domain.Collection, t domain.Timer) (domain.Collection, bool, error) {
	return mapTimers(state, func(cur domain.Timer) (domain.Timer, bool) {
		if cur.ID != t.ID {
			return cur, false
		}
		return t.Clone(), true
	})
}

func reduceDelete(state domain.Collection, id string) (domain.Collection, bool, error) {
	timers := make([]domain.Timer, 0, len(state.Timers))
	for _, t := range state.Timers {
		if t.ID != id {
			timers = append(timers, t)
		}
	}
	if len(timers) == len(state.Timers) {
		return state, false, nil
	}
	next := state
	next.Timers = timers
	return next, true, nil
}

func reduceAddCategory(state domain.Collection, name string) (domain.Collection, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || state.HasCategory(name) {
		return state, false, nil
	}
	next := state
	next.Categories = make([]string, 0, len(state.Categories)+1)
	next.Categories = append(next.Categories, state.Categories...)
	next.Categories = append(next.Categories, name)
	return next, true, nil
}

func reduceReset(state domain.Collection, ids []string, now time.Time) (domain.Collection, bool, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return mapTimers(state, func(t domain.Timer) (domain.Timer, bool) {
		if _, ok := wanted[t.ID]; !ok {
			return t, false
		}
		t.Status = domain.StatusCreated
		t.RemainingDuration = t.Duration
		t.CompletionTime = nil
		t.UpdatedAt = now
		return t, true
	})
}

func reduceComplete(state domain.Collection, id string, now time.Time) (domain.Collection, bool, error) {
	return mapTimers(state, func(t domain.Timer) (domain.Timer, bool) {
		// completion time is set once; replays are ignored
		if t.ID != id || t.Status == domain.StatusCompleted {
			return t, false
		}
		completed := now
		t.Status = domain.StatusCompleted
		t.RemainingDuration = 0
		t.CompletionTime = &completed
		t.UpdatedAt = now
		return t, true
	})
}

// mapTimers copies the timer slice, applying fn to each element. The result
// shares no backing array with state when anything changed.
func mapTimers(state domain.Collection, fn func(domain.Timer) (domain.Timer, bool)) (domain.Collection, bool, error) {
	var (
		timers  []domain.Timer
		changed bool
	)
	for i, t := range state.Timers {
		nt, ok := fn(t)
		if !ok {
			continue
		}
		if !changed {
			timers = make([]domain.Timer, len(state.Timers))
			copy(timers, state.Timers)
			changed = true
		}
		timers[i] = nt
	}
	if !changed {
		return state, false, nil
	}
	next := state
	next.Timers = timers
	return next, true, nil
}
