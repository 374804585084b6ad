package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("redis.invalid_connection_string")
	ErrRedisNotReady                = errors.New("redis.not_ready")
	ErrHealthcheckFailed            = errors.New("redis.healthcheck_failed")
	ErrDecode                       = errors.New("redis.decode_failed")
)
