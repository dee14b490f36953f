package survey

import (
	"errors"
	"time"

	"github.com/looplab/fsm"
)

var kst = time.FixedZone("KST", 9*60*60)

func isNoTransitionError(err error) bool {
	if err == nil {
		return false
	}
	var noTransitionError fsm.NoTransitionError
	return errors.As(err, &noTransitionError)
}

// FormatKST renders t in Korean local time, e.g. "2024. 01. 15. 오후 03:04".
func FormatKST(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	local := t.In(kst)
	meridiem := "오전"
	if local.Hour() >= 12 {
		meridiem = "오후"
	}
	return local.Format("2006. 01. 02. ") + meridiem + local.Format(" 03:04")
}
