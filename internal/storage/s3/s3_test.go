package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", fmt.Errorf("wrapped: %w", &types.NoSuchKey{}), true},
		{"typed not found", &types.NotFound{}, true},
		{"generic head 404", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		if got := isNotFound(tt.err); got != tt.want {
			t.Errorf("%s: isNotFound = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewBackendRequiresBucket(t *testing.T) {
	if _, err := NewBackend(context.Background(), BackendConfig{Endpoint: "http://localhost:9000"}); err == nil {
		t.Error("expected an error without bucket")
	}
	if _, err := NewBackendFromJSON(context.Background(), []byte("{")); err == nil {
		t.Error("expected a parse error")
	}
}
