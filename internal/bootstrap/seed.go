package bootstrap

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkdesk/inkdesk/internal/config"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/pkg/utils/secrets"
	"github.com/inkdesk/inkdesk/internal/pkg/utils/tokens"
)

// EnsureRootOwnerExists creates or realigns the bootstrap owner account when
// the service starts. Skipped when no bootstrap credentials are configured.
func EnsureRootOwnerExists(ctx context.Context, db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	email := cfg.Root.BootstrapOwnerEmail
	raw := cfg.Root.BootstrapOwnerSecret
	pepper := cfg.Root.SecretPepper

	if email == "" || raw == "" || pepper == "" {
		return nil
	}

	secret, ok := tokens.ParseToken(raw, cfg.Root.OwnerBearerTokenPrefix)
	if !ok {
		secret = raw
	}
	lookup := tokens.HMAC256Hex(pepper, secret)

	var owner model.Owner
	err := db.WithContext(ctx).Where("email = ?", email).First(&owner).Error

	switch err {
	case nil:
		// Owner exists, realign its secret with the configured one
		phc, err := secrets.HashSecret(secret, pepper)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"secret_key_hmac":     lookup,
			"secret_key_hash_phc": phc,
		}
		if uErr := db.WithContext(ctx).Model(&owner).Updates(updates).Error; uErr != nil {
			return uErr
		}
		log.Sugar().Infow("bootstrap owner exists", "owner", owner.ID)
		return nil

	case gorm.ErrRecordNotFound:
		phc, err := secrets.HashSecret(secret, pepper)
		if err != nil {
			return err
		}

		newOwner := model.Owner{
			Email:            email,
			DisplayName:      "Root Owner",
			SecretKeyHMAC:    lookup,
			SecretKeyHashPHC: phc,
		}
		if cErr := db.WithContext(ctx).Create(&newOwner).Error; cErr != nil {
			return cErr
		}
		log.Sugar().Infow("bootstrap owner created", "owner", newOwner.ID)
		return nil

	default:
		return err
	}
}
