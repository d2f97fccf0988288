package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Student represents a learner listed in the trombinoscope.
type Student struct {
	ID            string       `json:"id"`
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	Email         string       `json:"email"`
	StudentNumber string       `json:"student_number"`
	Photo         string       `json:"photo,omitempty"`
	AbsenceCount  AbsenceCount `json:"absence_count"`
}

// FullName returns the display name used in exports.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Initials returns the upper-cased initials shown when no photo is set.
func (s Student) Initials() string {
	return firstLetter(s.FirstName) + firstLetter(s.LastName)
}

// HasPhoto reports whether a non-blank photo reference is present.
func (s Student) HasPhoto() bool {
	return strings.TrimSpace(s.Photo) != ""
}

func firstLetter(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(value)
	return string(unicode.ToUpper(r))
}

// AbsenceCount is a non-negative absence counter. Decoding never fails:
// missing, null, NaN, negative or non-numeric input yields 0.
type AbsenceCount int

// NormalizeAbsence coerces an arbitrary decoded value into an AbsenceCount.
func NormalizeAbsence(value interface{}) AbsenceCount {
	switch v := value.(type) {
	case nil:
		return 0
	case AbsenceCount:
		return clampAbsence(float64(v))
	case int:
		return clampAbsence(float64(v))
	case int64:
		return clampAbsence(float64(v))
	case float64:
		return clampAbsence(v)
	case float32:
		return clampAbsence(float64(v))
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		return clampAbsence(parsed)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return clampAbsence(parsed)
	default:
		return 0
	}
}

func clampAbsence(value float64) AbsenceCount {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return AbsenceCount(math.Trunc(value))
}

// Add applies a delta and floors the result at zero.
func (a AbsenceCount) Add(delta int) AbsenceCount {
	return clampAbsence(float64(int(a) + delta))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AbsenceCount) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = 0
		return nil
	}
	*a = NormalizeAbsence(raw)
	return nil
}
