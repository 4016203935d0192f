package domain

import "errors"

// Domain errors
var (
	ErrPollAlreadyOpen = errors.New("a poll is already open in this scope")
	ErrNoActivePoll    = errors.New("no active poll in this scope")
	ErrPollClosed      = errors.New("poll is no longer open for voting")
	ErrUnknownOption   = errors.New("option does not belong to this poll")
	ErrInvalidOptions  = errors.New("poll requires at least two distinct options")
	ErrEmptyScope      = errors.New("scope cannot be empty")
	ErrEmptyTitle      = errors.New("title cannot be empty")
)
