package cron

import (
	"strconv"
	"strings"
	"time"

	cronv3 "github.com/robfig/cron/v3"
)

// spec is a parsed 5-field cron expression, grounded on cron.hpp's
// CronSpec/parse_cron_expr/cron_match.
type spec struct {
	minutes   [60]bool
	hours     [24]bool
	monthDays [32]bool
	months    [13]bool
	weekDays  [8]bool // index 0 and 7 both mean Sunday
	domAny    bool
	dowAny    bool
	valid     bool
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseField fills out (sized minV..maxV inclusive) from a comma-separated
// cron field. allowWeekday7 maps value 7 onto both index 0 and 7.
func parseField(token string, minV, maxV int, out []bool, allowWeekday7 bool) (anySeen, ok bool) {
	for i := range out {
		out[i] = false
	}

	mark := func(v int) {
		if allowWeekday7 && v == 7 {
			out[0] = true
			out[7] = true
			return
		}
		out[v] = true
	}

	sawAny := false
	for _, part := range strings.Split(token, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return false, false
		}

		step := 1
		base := part
		if slash := strings.IndexByte(part, '/'); slash >= 0 {
			base = part[:slash]
			s, okStep := parseInt(part[slash+1:])
			if !okStep || s <= 0 {
				return false, false
			}
			step = s
		}

		start, end := minV, maxV
		switch {
		case base == "*" || base == "":
			sawAny = true
		default:
			if dash := strings.IndexByte(base, '-'); dash >= 0 {
				a, okA := parseInt(base[:dash])
				b, okB := parseInt(base[dash+1:])
				if !okA || !okB {
					return false, false
				}
				start, end = a, b
			} else {
				one, okOne := parseInt(base)
				if !okOne {
					return false, false
				}
				start, end = one, one
			}
		}

		if start > end {
			return false, false
		}
		for v := start; v <= end; v += step {
			if v < minV || v > maxV {
				return false, false
			}
			mark(v)
		}
	}

	for _, b := range out {
		if b {
			return sawAny, true
		}
	}
	return sawAny, false
}

// parseExpr parses a 5-field "minute hour day-of-month month day-of-week"
// expression. spec.valid is false on any malformed field.
func parseExpr(expr string) spec {
	var s spec
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return s
	}

	_, minOK := parseField(fields[0], 0, 59, s.minutes[:], false)
	_, hourOK := parseField(fields[1], 0, 23, s.hours[:], false)
	domAny, domOK := parseField(fields[2], 1, 31, s.monthDays[:], false)
	s.domAny = domAny
	_, monthOK := parseField(fields[3], 1, 12, s.months[:], false)
	dowAny, dowOK := parseField(fields[4], 0, 7, s.weekDays[:], true)
	s.dowAny = dowAny

	s.valid = minOK && hourOK && domOK && monthOK && dowOK
	return s
}

// match reports whether t satisfies spec, applying cron's OR-when-both-
// restricted day-of-month/day-of-week quirk.
func (s spec) match(t time.Time) bool {
	minuteOK := s.minutes[t.Minute()]
	hourOK := s.hours[t.Hour()]
	monthOK := s.months[int(t.Month())]
	domOK := s.monthDays[t.Day()]
	dowOK := s.weekDays[int(t.Weekday())]

	if !(minuteOK && hourOK && monthOK) {
		return false
	}

	switch {
	case s.domAny && s.dowAny:
		return true
	case s.domAny:
		return dowOK
	case s.dowAny:
		return domOK
	default:
		return domOK || dowOK
	}
}

// maxMinuteLookahead bounds the next-fire search to two years.
const maxMinuteLookahead = 60 * 24 * 366 * 2

// computeNextCronRunMs steps forward minute-by-minute from the next whole
// minute after nowMs, returning the first match in unix ms, or 0 if the
// expression is invalid or nothing matches within the lookahead.
func computeNextCronRunMs(expr string, nowMs int64) int64 {
	parsed := parseExpr(expr)
	if !parsed.valid {
		return 0
	}

	nowSec := nowMs / 1000
	t := time.Unix(nowSec+(60-nowSec%60), 0).Local()

	for i := 0; i < maxMinuteLookahead; i++ {
		if parsed.match(t) {
			return t.Unix() * 1000
		}
		t = t.Add(time.Minute)
	}
	return 0
}

// ValidateExprSyntax reports whether expr is well-formed. It uses
// robfig/cron/v3's standard parser purely as a syntax gate on add_job
// input, then double-checks with the hand-rolled parser that actually
// drives scheduling, since the two must agree on what counts as a field.
// The hand-rolled matcher in computeNextCronRunMs, not robfig, is what
// ever decides a next-fire time, so robfig's own (slightly different)
// field-matching semantics never leak into scheduling behavior.
func ValidateExprSyntax(expr string) bool {
	if _, err := cronv3.ParseStandard(expr); err != nil {
		return false
	}
	return parseExpr(expr).valid
}
