package testutil

import (
	"context"

	"github.com/adforge/adforge/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}

// AsUser returns ctx acting on behalf of userID
func AsUser(ctx context.Context, userID string) context.Context {
	return types.SetUserID(ctx, userID)
}
