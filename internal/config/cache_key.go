package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptAnswersKey returns the cache key for a session's autosaved answers hash.
func (r *CacheKeyStruct) AttemptAnswersKey(sessionID string) string {
	return fmt.Sprintf("attempt:%s:answers", sessionID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam's
// live proctor monitor stream.
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
