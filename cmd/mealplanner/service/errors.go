package service

import "errors"

var (
	// ErrInvalidRequest marks request shape problems found past the
	// struct validator (bad dates, duplicate slots, dangling recipe ids)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRecipeNotFound means no base recipe exists for the given id
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrSnapshotNotFound means no plan snapshot exists for the given id
	ErrSnapshotNotFound = errors.New("plan snapshot not found")

	// ErrEntryNotFound means the (snapshot, date, meal) slot does not exist
	ErrEntryNotFound = errors.New("plan entry not found")

	// ErrNoVariant means the slot exists but carries no variant
	ErrNoVariant = errors.New("plan entry has no variant")

	// ErrSlotOccupied means the copy destination already holds an entry
	ErrSlotOccupied = errors.New("target slot already has an entry")

	// ErrProposerDisabled means natural-language modification is turned
	// off by configuration; direct ops submission still works
	ErrProposerDisabled = errors.New("patch proposer is disabled")
)
