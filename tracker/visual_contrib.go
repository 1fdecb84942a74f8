//go:build !nocontrib

package tracker

import (
	"gocv.io/x/gocv/contrib"
)

func init() {
	Register(CSRT, func() VisualTracker { return contrib.NewTrackerCSRT() })
	Register(KCF, func() VisualTracker { return contrib.NewTrackerKCF() })
}
