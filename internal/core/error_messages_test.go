package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty input",
			err:         ErrEmptyInput,
			wantCode:    "FILE005",
			wantMessage: "One or both files are empty",
		},
		{
			name:        "empty result",
			err:         ErrEmptyResult,
			wantCode:    "MATCH001",
			wantMessage: "No data could be generated",
		},
		{
			name:        "worker failure wins over embedded text",
			err:         &WorkerError{JobID: "j1", Cause: "empty file handling blew up"},
			wantCode:    "WRK001",
			wantMessage: "Matching stopped unexpectedly",
		},
		{
			name:        "wrapped file too large",
			err:         fmt.Errorf("read a.csv: %w", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "An uploaded file exceeds the size limit",
		},
		{
			name:        "too many jobs",
			err:         ErrTooManyJobs,
			wantCode:    "JOB001",
			wantMessage: "Too many matches in progress",
		},
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			wantCode:    "JOB004",
			wantMessage: "Request timed out",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("RATE LIMIT exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptyResult)

	expected := "No data could be generated (Code: MATCH001). Please check your CSV files format"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrEmptyInput, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsBadInput(fmt.Errorf("align: %w", ErrEmptyInput)) {
		t.Error("wrapped ErrEmptyInput should be bad input")
	}
	if !IsBadInput(ErrEmptyResult) {
		t.Error("ErrEmptyResult should be bad input")
	}
	if IsBadInput(&WorkerError{Cause: "boom"}) {
		t.Error("worker failure should not be bad input")
	}
	if !IsWorkerFailure(fmt.Errorf("run: %w", &WorkerError{Cause: "boom"})) {
		t.Error("wrapped WorkerError should be a worker failure")
	}
	if IsWorkerFailure(ErrEmptyInput) {
		t.Error("ErrEmptyInput should not be a worker failure")
	}

	cause := errors.New("index out of range")
	we := &WorkerError{Cause: cause}
	if !errors.Is(we, cause) {
		t.Error("WorkerError should unwrap an error cause")
	}
}
