package contactform

import "github.com/nazarhussain/portfolio-contact/internal/submission"

// MsgInvalidEmail is the client wording for a malformed address.
const MsgInvalidEmail = "Please enter a valid email address"

// Fields are the form inputs. Website is the hidden honeypot input.
type Fields struct {
	Name    string
	Email   string
	Message string
	Website string
}

// FieldErrors annotates each input; an empty string means the input is fine.
type FieldErrors struct {
	Name    string
	Email   string
	Message string
}

func (e FieldErrors) Empty() bool {
	return e == FieldErrors{}
}

// Validate applies the server rules to every visible input so each one can
// be annotated at once. It is a convenience for the user only; the server
// validates again.
func Validate(f Fields) FieldErrors {
	var errs FieldErrors

	if submission.IsBlank(f.Name) {
		errs.Name = submission.MsgNameRequired
	}

	switch {
	case submission.IsBlank(f.Email):
		errs.Email = submission.MsgEmailRequired
	case !submission.IsEmail(f.Email):
		errs.Email = MsgInvalidEmail
	}

	switch {
	case submission.IsBlank(f.Message):
		errs.Message = submission.MsgMessageRequired
	case !submission.MessageLongEnough(f.Message):
		errs.Message = submission.MsgMessageTooShort
	}

	return errs
}
