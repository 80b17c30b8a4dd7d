package memory

import "time"

var testTime = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
