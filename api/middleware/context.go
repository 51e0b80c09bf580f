package middleware

import "context"

type contextKey string

const (
	ctxMemberID contextKey = "member_id"
	ctxNickname contextKey = "nickname"
)

func MemberIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxMemberID).(int64); ok {
		return v
	}
	return 0
}

func NicknameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxNickname).(string); ok {
		return v
	}
	return ""
}

// WithMemberID injects the authenticated member into the context.
func WithMemberID(ctx context.Context, memberID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxMemberID, memberID)
}

// WithNickname injects the authenticated member's nickname into the context.
func WithNickname(ctx context.Context, nickname string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxNickname, nickname)
}
