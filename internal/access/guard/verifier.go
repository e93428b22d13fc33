package guard

import (
	"context"
	"fmt"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/pkg/jwtx"
)

// JWTVerifier resolves bearer credentials minted by the session service. Any
// parse or validation failure maps to ErrUnauthenticated; callers never learn
// which check failed.
type JWTVerifier struct {
	Tokens jwtx.Verifier
}

func (v *JWTVerifier) VerifyCredential(ctx context.Context, bearer string) (Principal, error) {
	claims, err := v.Tokens.Verify(bearer)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.SID == "" {
		return Principal{}, fmt.Errorf("%w: incomplete claims", ErrUnauthenticated)
	}

	return Principal{
		Identity: domain.Identity{
			ID:       claims.Subject,
			Role:     domain.Role(claims.Role),
			IsActive: true,
		},
		SessionID: claims.SID,
	}, nil
}
