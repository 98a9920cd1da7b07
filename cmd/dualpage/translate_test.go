package main

import (
	"strings"
	"testing"

	"github.com/oukeidos/dualpage/internal/pipeline"
)

func TestTranslationStatusError(t *testing.T) {
	cases := []struct {
		name    string
		result  pipeline.PageResult
		wantErr string
	}{
		{
			name:    "success",
			result:  pipeline.PageResult{Status: pipeline.StatusSuccess},
			wantErr: "",
		},
		{
			name: "partial",
			result: pipeline.PageResult{
				Status: pipeline.StatusPartialSuccess,
				Stats:  pipeline.Stats{Dispatches: 5, Failures: 2},
			},
			wantErr: "translation finished with status: Partial Success (2 of 5 dispatches failed)",
		},
		{
			name: "failure",
			result: pipeline.PageResult{
				Status: pipeline.StatusFailure,
				Stats:  pipeline.Stats{Dispatches: 3, Failures: 3},
			},
			wantErr: "translation finished with status: Failure",
		},
		{
			name:    "skipped",
			result:  pipeline.PageResult{Status: pipeline.StatusSkipped},
			wantErr: "",
		},
		{
			name:    "unknown_status",
			result:  pipeline.PageResult{},
			wantErr: `translation finished with unknown status: ""`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := translationStatusError(tc.result)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %q, want contains %q", err.Error(), tc.wantErr)
			}
		})
	}
}
