package grpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"dm-service/internal/auth"
)

// ValidateTokenMethod is the auth-service RPC that maps a token to a user id.
// Request and response are google.protobuf.StringValue: token in, user id out.
const ValidateTokenMethod = "/auth.AuthService/ValidateToken"

// AuthClient verifies tokens against the remote auth-service.
type AuthClient struct {
	conn grpc.ClientConnInterface
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(conn grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

// Verify implements auth.Verifier.
func (a *AuthClient) Verify(ctx context.Context, token string) (string, error) {
	resp := &wrapperspb.StringValue{}
	if err := a.conn.Invoke(ctx, ValidateTokenMethod, wrapperspb.String(token), resp); err != nil {
		switch status.Code(err) {
		case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.NotFound:
			return "", fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
		}
		return "", fmt.Errorf("validate token: %w", err)
	}
	userID := strings.TrimSpace(resp.GetValue())
	if userID == "" {
		return "", auth.ErrInvalidToken
	}
	return userID, nil
}

var _ auth.Verifier = (*AuthClient)(nil)
