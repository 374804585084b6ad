// Package redis connects to Redis and provides durable backends for the
// access-control core.
//
// Connect retries the initial ping according to Config; Healthcheck turns a
// client into a readiness probe. SessionStore implements session.Store and
// ProfileStore implements rbac.ProfileStore, so a restarted process can
// restore sessions and permission profiles:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	sessions := session.New(session.WithStore(redis.NewSessionStore(client, cfg)))
//	resolver := rbac.NewResolver(reg, rbac.WithStore(redis.NewProfileStore(client, cfg)))
//
// Session keys expire together with the session, so Redis drops abandoned
// records even if the process never deletes them.
package redis
