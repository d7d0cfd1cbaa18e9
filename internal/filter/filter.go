// Package filter decides which upstream records are Borderlands 4 codes,
// whether they are still redeemable, and turns them into SanitizedCode values.
package filter

import (
	"regexp"
	"strings"
	"time"

	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/util"
	"github.com/mutige-mungos/mungo-shift/internal/validator"
)

// GameRegex matches the target title or its abbreviation as a whole word.
var GameRegex = regexp.MustCompile(`(?i)\b(borderlands\s*4|bl4)\b`)

var (
	gameFields    = []string{"game", "title", "notes"}
	codeFields    = []string{"code", "shift", "value"}
	expiryFields  = []string{"expires", "expiry"}
	archiveFields = []string{"archived", "added"}
	rewardFields  = []string{"reward", "prize"}
)

var structValidator = validator.New()

// IsTargetGame reports whether any of the free-text fields mention Borderlands 4.
func IsTargetGame(record models.RawRecord) bool {
	for _, field := range gameFields {
		s, ok := record[field].(string)
		if ok && GameRegex.MatchString(s) {
			return true
		}
	}
	return false
}

// ExtractCode returns the uppercased code from the first populated code field,
// or false when none is present or it is malformed.
func ExtractCode(record models.RawRecord) (string, bool) {
	raw, ok := util.FirstString(record, codeFields...)
	if !ok {
		return "", false
	}
	code := strings.ToUpper(raw)
	if !validator.CodeRegex.MatchString(code) {
		return "", false
	}
	return code, true
}

// IsExpiredFlag reports whether the record carries an explicit expired flag set to true.
func IsExpiredFlag(record models.RawRecord) bool {
	expired, ok := util.ParseFlag(record["expired"])
	return ok && expired
}

// IsActive reports whether the record is still redeemable at now. A code
// stays active through the whole calendar day of its expiry, measured in
// now's location. Missing or unparseable expiry dates count as active.
func IsActive(record models.RawRecord, now time.Time) bool {
	if IsExpiredFlag(record) {
		return false
	}

	raw, ok := util.FirstString(record, expiryFields...)
	if !ok {
		return true
	}
	loc := now.Location()
	ey, em, ed, ok := expiryDate(raw, loc)
	if !ok {
		return true
	}

	endOfDay := time.Date(ey, em, ed, 23, 59, 59, int(999*time.Millisecond), loc)
	ny, nm, nd := now.Date()
	startOfDay := time.Date(ny, nm, nd, 0, 0, 0, 0, loc)

	return !startOfDay.After(endOfDay)
}

// dateOnlyLayouts name a calendar day rather than an instant.
var dateOnlyLayouts = []string{"2006-01-02", "2006/01/02"}

// expiryDate returns the calendar day of an expiry in loc. Date-only values
// are that day in loc; timestamps are converted into loc first.
func expiryDate(raw string, loc *time.Location) (int, time.Month, int, bool) {
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			y, m, d := t.Date()
			return y, m, d, true
		}
	}
	expires, ok := util.ParseTimestamp(raw)
	if !ok {
		return 0, 0, 0, false
	}
	y, m, d := expires.In(loc).Date()
	return y, m, d, true
}

// Sanitize builds the published shape of record. A precomputed code may be
// passed to skip re-extraction; the second result is false when no valid
// code is available.
func Sanitize(record models.RawRecord, code string) (models.SanitizedCode, bool) {
	if code == "" {
		extracted, ok := ExtractCode(record)
		if !ok {
			return models.SanitizedCode{}, false
		}
		code = extracted
	}

	sanitized := models.SanitizedCode{Code: code}

	if raw, ok := util.FirstString(record, expiryFields...); ok {
		sanitized.ExpiresRaw = raw
		sanitized.Expires, _ = util.NormalizeTimestamp(raw)
	}
	if raw, ok := util.FirstString(record, archiveFields...); ok {
		sanitized.ArchivedRaw = raw
		sanitized.Archived, _ = util.NormalizeTimestamp(raw)
	}
	if expired, ok := util.ParseFlag(record["expired"]); ok {
		sanitized.Expired = &expired
	}
	sanitized.Reward, _ = util.FirstString(record, rewardFields...)
	sanitized.Source, _ = util.PickString(record["source"])

	if err := structValidator.ValidateStruct(sanitized); err != nil {
		return models.SanitizedCode{}, false
	}
	return sanitized, true
}
