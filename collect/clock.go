package collect

import "time"

// nowUnix is indirected through a var so tests can substitute a fixed clock
// without threading a clock argument through every head and session method.
var nowUnix = func() int64 {
	return time.Now().Unix()
}
