package schema

// DecisionKind is the discriminant of a decision request a worker sends to
// its progress dialog. Every kind corresponds to one modal prompt.
type DecisionKind int

const (
	// KindFileError is a generic file error (cannot open, read, write).
	KindFileError DecisionKind = iota

	// KindOverwrite asks whether an existing target file may be overwritten.
	KindOverwrite

	// KindHiddenOrSystem asks whether a hidden or system file may be
	// processed.
	KindHiddenOrSystem

	// KindCannotMove reports a file that could not be moved.
	KindCannotMove

	// KindRenameDir reports a directory that could not be renamed.
	KindRenameDir

	// KindErrorNotice shows an error without asking anything.
	KindErrorNotice

	// KindADSReadError reports a failure reading alternate data streams.
	KindADSReadError

	// KindOverwriteADS asks whether a target with data streams may be
	// overwritten.
	KindOverwriteADS

	// KindCannotOpenADS reports alternate data streams that cannot be opened.
	KindCannotOpenADS

	// KindAttrsError reports attributes that could not be set.
	KindAttrsError

	// KindPermissionsError reports permissions that could not be copied.
	KindPermissionsError

	// KindDirTimeError reports directory times that could not be copied.
	KindDirTimeError

	// KindEncryptionLoss asks whether a file may lose its encryption.
	KindEncryptionLoss
)

// String returns the string representation of a [DecisionKind].
//
//nolint:cyclop
func (k DecisionKind) String() string {
	switch k {
	case KindFileError:
		return "file-error"
	case KindOverwrite:
		return "overwrite"
	case KindHiddenOrSystem:
		return "hidden-or-system"
	case KindCannotMove:
		return "cannot-move"
	case KindRenameDir:
		return "rename-dir"
	case KindErrorNotice:
		return "error-notice"
	case KindADSReadError:
		return "ads-read-error"
	case KindOverwriteADS:
		return "overwrite-ads"
	case KindCannotOpenADS:
		return "cannot-open-ads"
	case KindAttrsError:
		return "attrs-error"
	case KindPermissionsError:
		return "permissions-error"
	case KindDirTimeError:
		return "dir-time-error"
	case KindEncryptionLoss:
		return "encryption-loss"
	default:
		return "unknown"
	}
}

// Answer is the button a user chose in a decision prompt.
type Answer int

const (
	AnswerNone Answer = iota
	AnswerOK
	AnswerRetry
	AnswerSkip
	AnswerSkipAll
	AnswerYes
	AnswerYesAll
	AnswerIgnore
	AnswerIgnoreAll
	AnswerCancel
)

// String returns the string representation of an [Answer].
func (a Answer) String() string {
	switch a {
	case AnswerOK:
		return "ok"
	case AnswerRetry:
		return "retry"
	case AnswerSkip:
		return "skip"
	case AnswerSkipAll:
		return "skip-all"
	case AnswerYes:
		return "yes"
	case AnswerYesAll:
		return "yes-all"
	case AnswerIgnore:
		return "ignore"
	case AnswerIgnoreAll:
		return "ignore-all"
	case AnswerCancel:
		return "cancel"
	default:
		return "none"
	}
}

// DecisionRequest is the payload of a decision request. Which fields are used
// depends on the [DecisionKind].
type DecisionRequest struct {
	// Kind selects the prompt to show.
	Kind DecisionKind

	// Caption is the title of the prompt.
	Caption string

	// Path is the file or directory the prompt is about.
	Path string

	// Detail is the error text or, for overwrite prompts, the description of
	// the source file.
	Detail string

	// Path2 is the second path (overwrite target).
	Path2 string

	// Detail2 is the description of the second path.
	Detail2 string

	// Code carries kind-specific integers (attributes, error codes).
	Code int

	// Flag carries kind-specific booleans (e.g. directory vs. file).
	Flag bool
}

// Answers returns the answers a prompt of the request's kind offers.
func (r DecisionRequest) Answers() []Answer {
	switch r.Kind {
	case KindErrorNotice:
		return []Answer{AnswerOK}
	case KindOverwrite, KindOverwriteADS, KindHiddenOrSystem, KindEncryptionLoss:
		return []Answer{AnswerYes, AnswerYesAll, AnswerSkip, AnswerSkipAll, AnswerCancel}
	case KindAttrsError, KindPermissionsError, KindDirTimeError, KindADSReadError, KindCannotOpenADS:
		return []Answer{AnswerRetry, AnswerIgnore, AnswerIgnoreAll, AnswerCancel}
	default:
		return []Answer{AnswerRetry, AnswerSkip, AnswerSkipAll, AnswerCancel}
	}
}

// ProceedAnswer returns the answer that lets an operation continue without
// asking anyone. It is used when prompts must not be shown, such as during a
// critical shutdown.
func (r DecisionRequest) ProceedAnswer() Answer {
	switch r.Kind {
	case KindErrorNotice:
		return AnswerOK
	case KindOverwrite, KindOverwriteADS, KindHiddenOrSystem, KindEncryptionLoss:
		return AnswerYes
	case KindAttrsError, KindPermissionsError, KindDirTimeError, KindADSReadError, KindCannotOpenADS:
		return AnswerIgnore
	default:
		return AnswerSkip
	}
}
