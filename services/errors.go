package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrConflict               = errors.New("conflict")
	ErrDuplicateRequest       = errors.New("a pending access request already exists for this course")
	ErrInvalidStateTransition = errors.New("access request is not pending")
	ErrAlreadyEnrolled        = errors.New("already enrolled in this course")
	ErrNotEnrolled            = errors.New("not enrolled in this course")
	ErrAccessRequestRequired  = errors.New("course requires an approved access request")
	ErrCourseIncomplete       = errors.New("course has lessons that are not completed")
	ErrStorageFailure         = errors.New("storage failure")
)

// storageErr chuyển lỗi GORM sang lỗi nghiệp vụ; không tìm thấy -> ErrNotFound, còn lại -> ErrStorageFailure
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func invalidArg(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
