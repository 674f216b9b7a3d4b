// Package services holds the dashboard's business rules on top of the
// repository: contacts, content, distributions, prompts, analytics, the
// dashboard aggregates and authentication.
//
// Service methods return the sentinel errors below for predictable
// outcomes; handlers translate them into HTTP codes. Any other error is a
// backend failure and carries the backend's message.
package services

import "errors"

var (
	// ErrContactNotFound indicates that the requested contact does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrContentNotFound indicates that the requested content does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrPromptNotFound indicates that the requested prompt (or prompt
	// family) does not exist.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrInvalidInput is returned when a create or update payload fails
	// validation. It is usually wrapped with the offending field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoContacts is returned when a send names no recipients.
	ErrNoContacts = errors.New("at least one contact is required")

	// ErrInvalidChannel is returned when a send names a channel other than
	// email, sms or social.
	ErrInvalidChannel = errors.New("channel must be one of: email, sms, social")

	// ErrVersionConflict is returned when another writer created the same
	// prompt version first. Retrying picks the next number.
	ErrVersionConflict = errors.New("prompt version was created concurrently")
)
