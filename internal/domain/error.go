package domain

import "errors"

var (
	// ErrNameRequired indicates a timer was submitted without a name.
	ErrNameRequired = errors.New("timer name is required")

	// ErrInvalidDuration indicates the duration is not a positive number of seconds.
	ErrInvalidDuration = errors.New("duration must be a positive number of seconds")

	// ErrCategoryRequired indicates a timer was submitted without a category.
	ErrCategoryRequired = errors.New("timer category is required")

	// ErrUnknownCategory indicates the category has not been added yet.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidMidTrigger indicates the mid alert percentage is out of range.
	ErrInvalidMidTrigger = errors.New("mid alert must be between 0 and 99 percent")

	ErrTimerNotFound  = errors.New("timer not found")
	ErrAlreadyRunning = errors.New("timer is already running")
	ErrTimerCompleted = errors.New("timer is already completed")

	// ErrInvalidTheme indicates an unknown theme name.
	ErrInvalidTheme = errors.New("theme must be light, dark or system")
)
