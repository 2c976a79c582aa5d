package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserLoginKey returns the cache key holding the active token id of a user.
func (r *CacheKeyStruct) UserLoginKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// ExamKey returns the cache key for an exam record.
func (r *CacheKeyStruct) ExamKey(examID string) string {
	return fmt.Sprintf("exam:%s:record", examID)
}

// ExamQuestionsKey returns the cache key for an exam's ordered question list.
func (r *CacheKeyStruct) ExamQuestionsKey(examID string) string {
	return fmt.Sprintf("exam:%s:questions", examID)
}

// QuestionKey returns the cache key for a single question.
func (r *CacheKeyStruct) QuestionKey(questionID string) string {
	return fmt.Sprintf("question:%s", questionID)
}

// QuestionChoicesKey returns the cache key for a question's choice list.
func (r *CacheKeyStruct) QuestionChoicesKey(questionID string) string {
	return fmt.Sprintf("question:%s:choices", questionID)
}

// ChoiceKey returns the cache key for a single choice.
func (r *CacheKeyStruct) ChoiceKey(choiceID string) string {
	return fmt.Sprintf("choice:%s", choiceID)
}

var CacheKey = NewCacheKeyStruct()
