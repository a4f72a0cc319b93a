package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrMoveTooSoon          = errors.New("move too soon")
	ErrInputLocked          = errors.New("input locked")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// State is a node of the session state machine
type State string

const (
	Idle                  State = "idle"
	PendingResume         State = "pending_resume"
	Exploring             State = "exploring"
	ChallengeActive       State = "challenge_active"
	FriendlyDialog        State = "friendly_dialog"
	ExitWarningChallenges State = "exit_warning_challenges"
	ExitWarningFriends    State = "exit_warning_friends"
	WonComplete           State = "won_complete"
	WonIncomplete         State = "won_incomplete"
)

// Modal reports whether the state shows a modal that locks input briefly
func (s State) Modal() bool {
	switch s {
	case ChallengeActive, FriendlyDialog, ExitWarningChallenges, ExitWarningFriends, WonComplete, WonIncomplete:
		return true
	}
	return false
}

// Won reports whether the adventure has ended
func (s State) Won() bool {
	return s == WonComplete || s == WonIncomplete
}

// Outcome describes what the last accepted event did
type Outcome string

const (
	OutcomeStarted        Outcome = "started"
	OutcomeResumePrompt   Outcome = "resume_prompt"
	OutcomeResumed        Outcome = "resumed"
	OutcomeRestarted      Outcome = "restarted"
	OutcomeMoved          Outcome = "moved"
	OutcomeBlocked        Outcome = "blocked"
	OutcomeChallenge      Outcome = "challenge"
	OutcomeFriendly       Outcome = "friendly"
	OutcomeExitLocked     Outcome = "exit_locked"
	OutcomeFriendsMissing Outcome = "friends_missing"
	OutcomeIncorrect      Outcome = "incorrect"
	OutcomeCorrect        Outcome = "correct"
	OutcomeClosed         Outcome = "closed"
	OutcomeFriendTaken    Outcome = "friend_taken"
	OutcomeFriendDeclined Outcome = "friend_declined"
	OutcomeDismissed      Outcome = "dismissed"
	OutcomeWon            Outcome = "won"
	OutcomeAcknowledged   Outcome = "acknowledged"
	OutcomeLeft           Outcome = "left"
	OutcomeNone           Outcome = ""
)

// Timings are the input pacing rules of a controller
type Timings struct {
	MoveInterval   time.Duration // minimum gap between accepted moves
	ModalLockout   time.Duration // modal actions are ignored for this long after a modal opens
	AutoCloseDelay time.Duration // a solved challenge closes by itself after this delay
	SyncTimeout    time.Duration // bound on one progress upload; zero selects the default
}

// DefaultTimings returns the standard pacing
func DefaultTimings() Timings {
	return Timings{
		MoveInterval:   120 * time.Millisecond,
		ModalLockout:   400 * time.Millisecond,
		AutoCloseDelay: 1500 * time.Millisecond,
		SyncTimeout:    10 * time.Second,
	}
}

func invalidTransition(event string, from State) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, from)
}
