package classcontent

import (
	"errors"

	"github.com/dalemusser/zozokid/internal/app/system/authz"
)

var (
	// ErrNoStudents means the class has an empty roster, so there is no
	// queue to fan content out to. Nothing is written.
	ErrNoStudents = errors.New("class has no enrolled students")

	// ErrNoEligibleVideos means a channel resolved to zero short-form videos.
	// Nothing is written; callers report it as an outcome, not a fault.
	ErrNoEligibleVideos = errors.New("channel has no short-form videos")

	ErrClassNotFound   = errors.New("class not found")
	ErrClassDeleting   = errors.New("class is being deleted")
	ErrContentNotFound = errors.New("content item not found in class")
	ErrInvalidName     = errors.New("class name is required")
	ErrForbidden       = authz.ErrForbidden
)
