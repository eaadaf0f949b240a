package middleware

import (
	"net/http"
	"strings"

	"github.com/brametal/chapas-backend/api/responses"
	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/enums"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/security"
)

const accessKeyHeader = "X-Access-Key"

// AccessKeys holds the argon2id hashes of the administrative keys.
type AccessKeys struct {
	AdminHash      string
	SuperAdminHash string
}

// AccessKeysFromConfig reads the key hashes from the access section.
func AccessKeysFromConfig(cfg config.AccessConfig) AccessKeys {
	return AccessKeys{AdminHash: cfg.AdminKeyHash, SuperAdminHash: cfg.SuperAdminKeyHash}
}

// resolve returns the role matching key. The super-admin hash is checked first
// so a shared key never downgrades.
func (k AccessKeys) resolve(key string) (enums.AccessRole, error) {
	candidates := []struct {
		role enums.AccessRole
		hash string
	}{
		{enums.AccessRoleSuperAdmin, k.SuperAdminHash},
		{enums.AccessRoleAdmin, k.AdminHash},
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.hash) == "" {
			continue
		}
		ok, err := security.VerifyAccessKey(key, c.hash)
		if err != nil {
			return "", err
		}
		if ok {
			return c.role, nil
		}
	}
	return "", nil
}

// Auth resolves the access key carried in X-Access-Key (or a bearer token) to
// a role. Failed attempts are counted per client ip when limiter is set.
func Auth(keys AccessKeys, limiter *AccessFailureLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			if err := limiter.check(ctx, ip); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			key := accessKeyFromRequest(r)
			if key == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access key"))
				return
			}

			role, err := keys.resolve(key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify access key"))
				return
			}
			if role == "" {
				limiter.recordFailure(ctx, ip, logg)
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access key"))
				return
			}

			ctx = WithRole(ctx, role)
			if logg != nil {
				ctx = logg.WithActorRole(ctx, string(role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(accessKeyHeader)); key != "" {
		return key
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
