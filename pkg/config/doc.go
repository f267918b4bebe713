// Package config loads the configuration of the mapflow binary.
//
// Values come from, in increasing order of precedence: built-in defaults,
// a config file (mapflow.yml in the working directory unless another is
// given), a .env file, and MAPFLOW_* environment variables where nested keys
// are joined by underscores:
//
//	pool:
//	  worker_count: 16        # MAPFLOW_POOL_WORKER_COUNT=16
//	throttle:
//	  rate: 10                # MAPFLOW_THROTTLE_RATE=10
//	  burst: 5
//	cache:
//	  backend: redis          # MAPFLOW_CACHE_BACKEND=redis
//	  redis_addr: localhost:6379
//	  ttl: 24h
//	metrics:
//	  enabled: true
//	  addr: ":9090"
//	schedule: "@every 1h"
//
// The loaded configuration is validated with the struct tags of each
// component's Config type.
package config
