package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ParticipantLoginKey returns the cache key for a participant's login session
func (r *CacheKeyStruct) ParticipantLoginKey(participantID int) string {
	return fmt.Sprintf("login:%d", participantID)
}

// SessionStartKey returns the cache key for a participant's challenge session start
func (r *CacheKeyStruct) SessionStartKey(challengeID string, participantID int) string {
	return fmt.Sprintf("participant:%d:challenge:%s:session_start", participantID, challengeID)
}

// SessionAnswersKey returns the cache key for a participant's autosaved quiz answers
func (r *CacheKeyStruct) SessionAnswersKey(challengeID string, participantID int) string {
	return fmt.Sprintf("participant:%d:challenge:%s:answers", participantID, challengeID)
}

// SessionCodeKey returns the cache key for a participant's autosaved code draft
func (r *CacheKeyStruct) SessionCodeKey(challengeID string, participantID int) string {
	return fmt.Sprintf("participant:%d:challenge:%s:code", participantID, challengeID)
}

// SessionWarningsKey returns the cache key for a participant's proctoring warning count
func (r *CacheKeyStruct) SessionWarningsKey(challengeID string, participantID int) string {
	return fmt.Sprintf("participant:%d:challenge:%s:warnings", participantID, challengeID)
}

// ChallengePayloadKey returns the cache key for a challenge's participant-facing payload
func (r *CacheKeyStruct) ChallengePayloadKey(challengeID string) string {
	return fmt.Sprintf("challenge:%s:payload", challengeID)
}

// ChallengeAnswerKey returns the cache key for a challenge's quiz answer key
func (r *CacheKeyStruct) ChallengeAnswerKey(challengeID string) string {
	return fmt.Sprintf("challenge:%s:key", challengeID)
}

// ChallengeProblemKey returns the cache key for a challenge's coding problem payload
func (r *CacheKeyStruct) ChallengeProblemKey(challengeID string) string {
	return fmt.Sprintf("challenge:%s:problem", challengeID)
}

// LeaderboardKey returns the cache key for an event's leaderboard snapshot
func (r *CacheKeyStruct) LeaderboardKey(eventID string) string {
	return fmt.Sprintf("event:%s:leaderboard", eventID)
}

var CacheKey = NewCacheKeyStruct()
