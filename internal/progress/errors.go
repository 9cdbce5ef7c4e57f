package progress

import "errors"

var (
	// ErrNoNextChapter is returned by Advance on the last chapter.
	ErrNoNextChapter = errors.New("progress: no next chapter")

	// ErrNoPreviousChapter is returned by Retreat on the first chapter.
	ErrNoPreviousChapter = errors.New("progress: no previous chapter")

	// ErrChapterLocked is returned when the target chapter is not navigable.
	ErrChapterLocked = errors.New("progress: chapter locked")

	// ErrIndexOutOfRange is returned by JumpTo for an index outside the
	// curriculum.
	ErrIndexOutOfRange = errors.New("progress: index out of range")

	// ErrTransitionPending is returned by Advance while a book transition
	// awaits confirmation.
	ErrTransitionPending = errors.New("progress: book transition pending")

	// ErrNoPendingTransition is returned by ConfirmTransition when there is
	// nothing to confirm.
	ErrNoPendingTransition = errors.New("progress: no pending transition")
)
