package session

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys in Redis.
const KeyPrefix = "session:"

// Store persists sessions in Redis with a sliding TTL. If Redis is
// unavailable or unconfigured it degrades to an in-memory map so the
// business logic never blocks; data is lost on restart in that mode.
type Store struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	memory map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// StoreConfig holds session store settings.
type StoreConfig struct {
	RedisURL string // redis://host:port/db
	Password string
	DB       int
	TTL      time.Duration
}

// NewStore creates a session store. Connection failure is not fatal — the
// store falls back to memory and logs a warning.
func NewStore(cfg StoreConfig) *Store {
	st := &Store{
		ttl:    cfg.TTL,
		memory: make(map[string]memoryEntry),
	}
	if st.ttl <= 0 {
		st.ttl = 24 * time.Hour
	}

	if cfg.RedisURL == "" {
		log.Println("[Session] Redis URL not configured, using memory store")
		return st
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("[Session] ❌ Invalid Redis URL: %v", err)
		return st
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[Session] ⚠️ Redis connection failed, using memory fallback: %v", err)
		return st
	}

	st.client = c
	log.Println("[Session] ✅ Redis connected")
	return st
}

// Close releases the Redis connection.
func (st *Store) Close() {
	if st.client != nil {
		st.client.Close()
	}
}

// Healthy reports whether the Redis backend is reachable.
func (st *Store) Healthy(ctx context.Context) bool {
	if st.client == nil {
		return false
	}
	return st.client.Ping(ctx).Err() == nil
}

func key(customerID string) string { return KeyPrefix + customerID }

// Get returns the session for a customer, or a fresh default session if
// absent or unreadable. It never fails the caller.
func (st *Store) Get(ctx context.Context, customerID string) *Session {
	var raw []byte

	if st.client != nil {
		data, err := st.client.Get(ctx, key(customerID)).Bytes()
		if err != nil {
			if err != redis.Nil {
				log.Printf("[Session] get failed (%s): %v", customerID, err)
			}
			return New()
		}
		raw = data
	} else {
		st.mu.Lock()
		entry, ok := st.memory[key(customerID)]
		if ok && time.Now().After(entry.expiresAt) {
			delete(st.memory, key(customerID))
			ok = false
		}
		st.mu.Unlock()
		if !ok {
			return New()
		}
		raw = entry.data
	}

	s := New()
	if err := json.Unmarshal(raw, s); err != nil {
		log.Printf("[Session] parse failed (%s): %v", customerID, err)
		return New()
	}
	if !s.State.Valid() {
		s.State = StateDetect
	}
	return s
}

// Set persists the session with a refreshed TTL and increments the message
// counter. Returns false if the write failed (best-effort, logged).
func (st *Store) Set(ctx context.Context, customerID string, s *Session) bool {
	s.MessageCount++

	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("[Session] marshal failed (%s): %v", customerID, err)
		return false
	}

	if st.client != nil {
		if err := st.client.SetEx(ctx, key(customerID), data, st.ttl).Err(); err != nil {
			log.Printf("[Session] set failed (%s): %v", customerID, err)
			return false
		}
		return true
	}

	st.mu.Lock()
	st.memory[key(customerID)] = memoryEntry{data: data, expiresAt: time.Now().Add(st.ttl)}
	st.mu.Unlock()
	return true
}

// Delete removes a customer's session. Deleting an absent session is a
// no-op; the call never errors.
func (st *Store) Delete(ctx context.Context, customerID string) bool {
	if st.client != nil {
		if err := st.client.Del(ctx, key(customerID)).Err(); err != nil {
			log.Printf("[Session] delete failed (%s): %v", customerID, err)
			return false
		}
		return true
	}

	st.mu.Lock()
	delete(st.memory, key(customerID))
	st.mu.Unlock()
	return true
}

// All returns every active session keyed by customer id (debugging/admin).
func (st *Store) All(ctx context.Context) map[string]*Session {
	sessions := make(map[string]*Session)

	if st.client != nil {
		iter := st.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			k := iter.Val()
			data, err := st.client.Get(ctx, k).Bytes()
			if err != nil {
				continue
			}
			s := New()
			if json.Unmarshal(data, s) == nil {
				sessions[strings.TrimPrefix(k, KeyPrefix)] = s
			}
		}
		if err := iter.Err(); err != nil {
			log.Printf("[Session] scan failed: %v", err)
		}
		return sessions
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	for k, entry := range st.memory {
		if now.After(entry.expiresAt) {
			continue
		}
		s := New()
		if json.Unmarshal(entry.data, s) == nil {
			sessions[strings.TrimPrefix(k, KeyPrefix)] = s
		}
	}
	return sessions
}
