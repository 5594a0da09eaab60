// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package forms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/rollcall/apiclient"
)

type Phase int

const (
	Closed Phase = iota
	Open
	Submitting
)

func (p Phase) String() string {
	switch p {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

type Mode int

const (
	Create Mode = iota
	Edit
	Delete
)

func (m Mode) verb() string {
	switch m {
	case Edit:
		return "updating"
	case Delete:
		return "deleting"
	}
	return "creating"
}

var ErrNotOpen = errors.New("modal is not open")

// Modal tracks one add, edit or delete dialog.
type Modal[F Form] struct {
	Phase  Phase
	Mode   Mode
	Entity string
	Form   F
	// Errors are the field messages from the last failed validation.
	Errors FieldErrors
	// Message is the banner text from the last failed submission.
	Message string
}

// OpenModal opens a dialog on form, which is blank for Create and
// prefilled from the record otherwise.
func OpenModal[F Form](mode Mode, entity string, form F) *Modal[F] {
	return &Modal[F]{Phase: Open, Mode: mode, Entity: entity, Form: form}
}

// Fallback is shown when a failed submission carries no backend message.
func (m *Modal[F]) Fallback() string {
	return "Error " + m.Mode.verb() + " " + m.Entity
}

// Submit validates the form and, if it passes, calls fn exactly once.
// Validation failures keep the modal open with m.Errors set and never call
// fn. A failing fn keeps it open with m.Message set; success closes it.
func (m *Modal[F]) Submit(ctx context.Context, fn func(context.Context, F) error) error {
	if m.Phase != Open {
		return ErrNotOpen
	}

	m.Message = ""
	if fe := m.Form.Validate(); len(fe) > 0 {
		m.Errors = fe
		return fe
	}
	m.Errors = nil

	m.Phase = Submitting
	if err := fn(ctx, m.Form); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			m.Phase = Closed
			return err
		}
		m.Phase = Open
		m.Message = apiclient.Message(err, m.Fallback())
		slog.Warn("form submission failed", "entity", m.Entity, "mode", m.Mode.verb(), "error", err)
		return err
	}

	m.Phase = Closed
	return nil
}

// Close dismisses the dialog without submitting.
func (m *Modal[F]) Close() {
	m.Phase = Closed
	m.Errors = nil
	m.Message = ""
}
