// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package forms validates the console's modal forms and drives their
open/submitting/closed lifecycle.

Each form holds the raw text a user typed. Validate returns FieldErrors
in the order the fields appear (FormError for form-wide messages); Payload
converts a valid form into the request the backend expects. Edit forms are
built from the record being edited so an untouched form saves the record
unchanged. A code is upper-cased only when the edit changed it.

	m := forms.OpenModal(forms.Edit, "Panchayat", forms.PanchayatFormFrom(p))
	err := m.Submit(ctx, func(ctx context.Context, f forms.PanchayatForm) error {
		_, err := svc.UpdatePanchayat(ctx, f.ID, f.Payload())
		return err
	})

Voter photos are checked locally: at most 2 MiB and an image both by the
declared type and by the sniffed content.
*/
package forms
