package model

import "errors"

var (
	// ErrInvalidStatus: status di luar present/left/returned/absent.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrNotFound: enrollment tidak aktif / class / student tidak ada.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable membungkus semua kegagalan persistence.
	ErrStoreUnavailable = errors.New("attendance store unavailable")
	// ErrPartialSweepFailure: sweep selesai tapi ada record yang gagal ditransisikan.
	ErrPartialSweepFailure = errors.New("partial sweep failure")
)
