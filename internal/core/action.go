package core

import "countdown/internal/domain"

// ActionType identifies a state transition request.
type ActionType string

const (
	ActionLoadData      ActionType = "LOAD_DATA"
	ActionAddTimer      ActionType = "ADD_TIMER"
	ActionUpdateTimer   ActionType = "UPDATE_TIMER"
	ActionDeleteTimer   ActionType = "DELETE_TIMER"
	ActionAddCategory   ActionType = "ADD_CATEGORY"
	ActionResetTimers   ActionType = "RESET_TIMERS"
	ActionCompleteTimer ActionType = "COMPLETE_TIMER"
)

// Action is an input to the reducer. Payload holds one of:
// *domain.Collection (LOAD_DATA, nil allowed), domain.Timer (ADD/UPDATE),
// string (DELETE/ADD_CATEGORY/COMPLETE) or []string (RESET).
type Action struct {
	Type    ActionType
	Payload any
}

// LoadData replaces the whole collection. A nil payload loads an empty one.
func LoadData(c *domain.Collection) Action {
	return Action{Type: ActionLoadData, Payload: c}
}

func AddTimer(t domain.Timer) Action {
	return Action{Type: ActionAddTimer, Payload: t}
}

func UpdateTimer(t domain.Timer) Action {
	return Action{Type: ActionUpdateTimer, Payload: t}
}

func DeleteTimer(id string) Action {
	return Action{Type: ActionDeleteTimer, Payload: id}
}

func AddCategory(name string) Action {
	return Action{Type: ActionAddCategory, Payload: name}
}

func ResetTimers(ids ...string) Action {
	return Action{Type: ActionResetTimers, Payload: ids}
}

func CompleteTimer(id string) Action {
	return Action{Type: ActionCompleteTimer, Payload: id}
}
