package poll

import "errors"

var (
	// ErrPollAlreadyActive is returned by Create while an incomplete poll exists.
	ErrPollAlreadyActive = errors.New("cannot create new poll while current poll is active")
	// ErrNoActivePoll is returned by Submit when no poll is open for answers.
	ErrNoActivePoll = errors.New("no active poll")
	// ErrAlreadyAnswered is returned by Submit when the participant already
	// answered the current poll.
	ErrAlreadyAnswered = errors.New("you have already answered this poll")
	// ErrUnknownParticipant is returned by Submit for an unregistered identity.
	ErrUnknownParticipant = errors.New("student not found")
	// ErrUnknownOption is returned by Submit when the chosen option is not one
	// of the poll's options.
	ErrUnknownOption = errors.New("option is not part of this poll")
	// ErrNoOptions is returned by Create for an empty option set.
	ErrNoOptions = errors.New("poll needs at least one option")
	// ErrBlankOption is returned by Create when an option is empty.
	ErrBlankOption = errors.New("poll options must not be blank")
	// ErrDuplicateOption is returned by Create when two options are equal.
	ErrDuplicateOption = errors.New("poll options must be unique")
)
