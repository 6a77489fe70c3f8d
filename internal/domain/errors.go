package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
	ErrMarketClosed        = errors.New("market is closed")
	ErrRunInProgress       = errors.New("trading run already in progress")
	ErrSchedulerRunning    = errors.New("scheduler already running")
	ErrSchedulerNotRunning = errors.New("scheduler not running")
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrLockHeld            = errors.New("lock already held")
	ErrContextDone         = errors.New("context cancelled")
)
