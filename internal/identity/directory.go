package identity

import (
	"context"
	"encoding/json"
	"time"

	"agency-portal/internal/domain/user"
	portal_errors "agency-portal/pkg/errors"

	goredis "github.com/redis/go-redis/v9"
)

// Directory is a Redis-backed cache of identities the portal has seen.
// User records live with the external identity provider; every verified
// token refreshes the cache, which is what author resolution and the
// platform-admin seeding read from.
type Directory struct {
	client *goredis.Client
	ttl    time.Duration
}

const (
	identityKeyPrefix = "identity:user:"
	identityAdminSet  = "identity:admins"
)

func NewDirectory(client *goredis.Client, ttl time.Duration) *Directory {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Directory{client: client, ttl: ttl}
}

// Remember caches an identity asserted by a verified token.
func (d *Directory) Remember(ctx context.Context, identity user.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	pipe := d.client.Pipeline()
	pipe.Set(ctx, identityKeyPrefix+identity.ID.String(), data, d.ttl)
	if identity.IsAdmin() {
		pipe.SAdd(ctx, identityAdminSet, identity.ID.String())
	} else {
		pipe.SRem(ctx, identityAdminSet, identity.ID.String())
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Lookup resolves a user id to a display identity.
func (d *Directory) Lookup(ctx context.Context, id string) (user.Identity, error) {
	data, err := d.client.Get(ctx, identityKeyPrefix+id).Result()
	if err == goredis.Nil {
		return user.Identity{}, portal_errors.ErrNotFound
	}
	if err != nil {
		return user.Identity{}, err
	}

	var identity user.Identity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		return user.Identity{}, err
	}
	return identity, nil
}

// PlatformAdmins returns every cached identity with the admin role. Used
// to seed entity rooms with the agency side.
func (d *Directory) PlatformAdmins(ctx context.Context) ([]user.Identity, error) {
	ids, err := d.client.SMembers(ctx, identityAdminSet).Result()
	if err != nil {
		return nil, err
	}

	admins := make([]user.Identity, 0, len(ids))
	for _, id := range ids {
		identity, err := d.Lookup(ctx, id)
		if err != nil {
			// Cache entry expired; the admin reappears on next login.
			continue
		}
		admins = append(admins, identity)
	}
	return admins, nil
}
