package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/inkdesk/inkdesk/internal/config"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/serializer"
	"github.com/inkdesk/inkdesk/internal/pkg/utils/secrets"
	"github.com/inkdesk/inkdesk/internal/pkg/utils/tokens"
)

// OwnerAuth authenticates owner requests with bearer API secrets. The
// presented secret is HMAC-hashed for the database lookup and optionally
// verified against the stored argon2id hash. The resolved owner lands in
// the gin context under "owner".
func OwnerAuth(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx, authSpan := otel.Tracer("middleware").Start(ctx, "owner_auth",
			trace.WithAttributes(attribute.String("middleware", "owner_auth")))

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		secret, ok := tokens.ParseToken(raw, cfg.Root.OwnerBearerTokenPrefix)
		if !ok {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		lookup := tokens.HMAC256Hex(cfg.Root.SecretPepper, secret)

		var owner model.Owner
		if err := db.WithContext(ctx).Where(&model.Owner{SecretKeyHMAC: lookup}).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				authSpan.SetAttributes(attribute.Bool("authenticated", false))
				authSpan.End()
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
				return
			}
			authSpan.RecordError(err)
			authSpan.End()
			c.AbortWithStatusJSON(http.StatusInternalServerError, serializer.DBErr("", err))
			return
		}

		if cfg.Root.EnableArgon2Verification {
			_, verifySpan := otel.Tracer("middleware").Start(ctx, "owner_auth.verify_secret")
			pass, err := secrets.VerifySecret(secret, cfg.Root.SecretPepper, owner.SecretKeyHashPHC)
			verifySpan.End()
			if err != nil || !pass {
				authSpan.SetAttributes(
					attribute.String("owner_id", owner.ID.String()),
					attribute.Bool("authenticated", false),
				)
				authSpan.End()
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
				return
			}
		}

		rootSpan := trace.SpanFromContext(c.Request.Context())
		if rootSpan.SpanContext().IsValid() {
			rootSpan.SetAttributes(attribute.String("owner_id", owner.ID.String()))
		}

		authSpan.SetAttributes(
			attribute.String("owner_id", owner.ID.String()),
			attribute.Bool("authenticated", true),
		)
		authSpan.End()

		c.Set("owner", &owner)
		c.Next()
	}
}
