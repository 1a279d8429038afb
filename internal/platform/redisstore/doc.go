// Package redisstore implements store.JobStore on Redis. Each job is a hash
// holding its status and encoded record; writes go through a Lua script so
// the terminal check and the update are atomic.
package redisstore
