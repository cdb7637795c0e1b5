package redis

import goredis "github.com/redis/go-redis/v9"

// KEYS[1] slot hash, KEYS[2] holder set, KEYS[3] blocked-dates sorted set.
// Every script answers {code, capacity, booked, blocked, version, updated_ms, holders...}.
const prelude = `
local function snapshot(code)
  local h = redis.call('HMGET', KEYS[1], 'capacity', 'booked', 'blocked', 'version', 'updated_at')
  local out = {code, tonumber(h[1]) or 0, tonumber(h[2]) or 0, tonumber(h[3]) or 0, tonumber(h[4]) or 0, tonumber(h[5]) or 0}
  for _, m in ipairs(redis.call('SMEMBERS', KEYS[2])) do
    table.insert(out, m)
  end
  return out
end
local function ensure(capacity, now)
  if redis.call('EXISTS', KEYS[1]) == 0 then
    redis.call('HSET', KEYS[1], 'capacity', capacity, 'booked', 0, 'blocked', 0, 'version', 0, 'updated_at', now)
  end
end
`

var (
	slotScript = goredis.NewScript(prelude + `
return snapshot(1)
`)

	// ARGV: ref, default capacity, now
	reserveScript = goredis.NewScript(prelude + `
ensure(ARGV[2], ARGV[3])
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
  return snapshot(1)
end
local capacity = tonumber(redis.call('HGET', KEYS[1], 'capacity'))
local booked = tonumber(redis.call('HGET', KEYS[1], 'booked'))
if redis.call('HGET', KEYS[1], 'blocked') == '1' or booked >= capacity then
  return snapshot(0)
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('HINCRBY', KEYS[1], 'booked', 1)
redis.call('HINCRBY', KEYS[1], 'version', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
return snapshot(1)
`)

	// ARGV: ref, now
	releaseScript = goredis.NewScript(prelude + `
if redis.call('SREM', KEYS[2], ARGV[1]) == 0 then
  return snapshot(0)
end
if tonumber(redis.call('HGET', KEYS[1], 'booked') or '0') > 0 then
  redis.call('HINCRBY', KEYS[1], 'booked', -1)
end
redis.call('HINCRBY', KEYS[1], 'version', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return snapshot(1)
`)

	// ARGV: blocked (1|0), default capacity, now, date, day number
	blockScript = goredis.NewScript(prelude + `
ensure(ARGV[2], ARGV[3])
redis.call('HSET', KEYS[1], 'blocked', ARGV[1], 'updated_at', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'version', 1)
if ARGV[1] == '1' then
  redis.call('ZADD', KEYS[3], ARGV[5], ARGV[4])
else
  redis.call('ZREM', KEYS[3], ARGV[4])
end
return snapshot(1)
`)

	// ARGV: capacity, now
	capacityScript = goredis.NewScript(prelude + `
ensure(ARGV[1], ARGV[2])
if tonumber(ARGV[1]) < tonumber(redis.call('HGET', KEYS[1], 'booked')) then
  return snapshot(0)
end
redis.call('HSET', KEYS[1], 'capacity', ARGV[1], 'updated_at', ARGV[2])
redis.call('HINCRBY', KEYS[1], 'version', 1)
return snapshot(1)
`)
)
