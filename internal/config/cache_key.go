package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// BookingLockKey returns the key that serializes booking attempts of one user for one class.
func (r *CacheKeyStruct) BookingLockKey(userID, classID uuid.UUID) string {
	return fmt.Sprintf("booking:lock:user:%s:class:%s", userID, classID)
}

// ClassAvailabilityChannel returns the Redis PubSub channel carrying spot updates for a class.
func (r *CacheKeyStruct) ClassAvailabilityChannel(classID uuid.UUID) string {
	return fmt.Sprintf("class:%s:availability", classID)
}

var CacheKey = NewCacheKeyStruct()
